// Copyright 2021-2024 EMQ Technologies Co., Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kv

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lf-edge/kql/pkg/errorx"
)

type memoryKvStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func (kv *memoryKvStore) Setnx(key string, value interface{}) error {
	b, err := Encode(value)
	if err != nil {
		return err
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if _, ok := kv.data[key]; ok {
		return fmt.Errorf("key %s already exists", key)
	}
	kv.data[key] = b
	return nil
}

func (kv *memoryKvStore) Set(key string, value interface{}) error {
	b, err := Encode(value)
	if err != nil {
		return err
	}
	kv.mu.Lock()
	kv.data[key] = b
	kv.mu.Unlock()
	return nil
}

func (kv *memoryKvStore) Get(key string, value interface{}) (bool, error) {
	kv.mu.RLock()
	b, ok := kv.data[key]
	kv.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := Decode(b, value); err != nil {
		return false, err
	}
	return true, nil
}

func (kv *memoryKvStore) Delete(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if _, ok := kv.data[key]; !ok {
		return errorx.NewWithCode(errorx.NOT_FOUND, fmt.Sprintf("%s is not found", key))
	}
	delete(kv.data, key)
	return nil
}

func (kv *memoryKvStore) Keys() ([]string, error) {
	kv.mu.RLock()
	keys := make([]string, 0, len(kv.data))
	for k := range kv.data {
		keys = append(keys, k)
	}
	kv.mu.RUnlock()
	sort.Strings(keys)
	return keys, nil
}

func (kv *memoryKvStore) Clean() error {
	kv.mu.Lock()
	kv.data = make(map[string][]byte)
	kv.mu.Unlock()
	return nil
}

func (kv *memoryKvStore) Drop() error {
	return kv.Clean()
}

type memoryStoreBuilder struct {
	mu     sync.Mutex
	tables map[string]*memoryKvStore
}

func NewMemoryStoreBuilder() StoreBuilder {
	return &memoryStoreBuilder{tables: make(map[string]*memoryKvStore)}
}

func (b *memoryStoreBuilder) CreateStore(table string) (KeyValue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.tables[table]; ok {
		return s, nil
	}
	s := &memoryKvStore{data: make(map[string][]byte)}
	b.tables[table] = s
	return s, nil
}

func (b *memoryStoreBuilder) Close() error {
	return nil
}
