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
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lf-edge/kql/pkg/errorx"
)

const KvPrefix = "KV:STORE"

type Instance struct {
	cli  *redis.Client
	conf RedisConfig
}

func NewRedis(c RedisConfig) *Instance {
	return &Instance{conf: c}
}

func (r *Instance) Connect() error {
	timeout := time.Duration(r.conf.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r.cli = redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", r.conf.Host, r.conf.Port),
		Password:    r.conf.Password,
		DialTimeout: timeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return r.cli.Ping(ctx).Err()
}

func (r *Instance) Disconnect() error {
	return r.cli.Close()
}

type redisKvStore struct {
	database  *redis.Client
	table     string
	keyPrefix string
}

func createRedisKvStore(cli *redis.Client, table string) *redisKvStore {
	return &redisKvStore{
		database:  cli,
		table:     table,
		keyPrefix: fmt.Sprintf("%s:%s", KvPrefix, table),
	}
}

func (kv *redisKvStore) Setnx(key string, value interface{}) error {
	b, err := Encode(value)
	if nil != err {
		return err
	}
	done, err := kv.database.SetNX(context.Background(), kv.tableKey(key), b, 0).Result()
	if err != nil {
		return err
	}
	if !done {
		return fmt.Errorf("key %s already exists", key)
	}
	return nil
}

func (kv *redisKvStore) Set(key string, value interface{}) error {
	b, err := Encode(value)
	if nil != err {
		return err
	}
	return kv.database.Set(context.Background(), kv.tableKey(key), b, 0).Err()
}

func (kv *redisKvStore) Get(key string, value interface{}) (bool, error) {
	val, err := kv.database.Get(context.Background(), kv.tableKey(key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := Decode(val, value); err != nil {
		return false, err
	}
	return true, nil
}

func (kv *redisKvStore) Delete(key string) error {
	n, err := kv.database.Del(context.Background(), kv.tableKey(key)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return errorx.NewWithCode(errorx.NOT_FOUND, fmt.Sprintf("%s is not found", key))
	}
	return nil
}

func (kv *redisKvStore) Keys() ([]string, error) {
	keys, err := kv.metaKeys()
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, len(keys))
	for _, k := range keys {
		result = append(result, strings.TrimPrefix(k, kv.keyPrefix+":"))
	}
	sort.Strings(result)
	return result, nil
}

func (kv *redisKvStore) metaKeys() ([]string, error) {
	return kv.database.Keys(context.Background(), fmt.Sprintf("%s:*", kv.keyPrefix)).Result()
}

func (kv *redisKvStore) Clean() error {
	keys, err := kv.metaKeys()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return kv.database.Del(context.Background(), keys...).Err()
}

func (kv *redisKvStore) Drop() error {
	return kv.Clean()
}

func (kv *redisKvStore) tableKey(key string) string {
	return fmt.Sprintf("%s:%s", kv.keyPrefix, key)
}

type redisStoreBuilder struct {
	redis *Instance
}

func NewRedisStoreBuilder(r *Instance) StoreBuilder {
	return &redisStoreBuilder{redis: r}
}

func (b *redisStoreBuilder) CreateStore(table string) (KeyValue, error) {
	return createRedisKvStore(b.redis.cli, table), nil
}

func (b *redisStoreBuilder) Close() error {
	return b.redis.Disconnect()
}
