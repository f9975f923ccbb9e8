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

package meta

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lf-edge/kql/internal/conf"
	"github.com/lf-edge/kql/pkg/ast"
	"github.com/lf-edge/kql/pkg/errorx"
	"github.com/lf-edge/kql/pkg/kv"
	"github.com/lf-edge/kql/pkg/model"
)

// Source is a named stream or table backed by a topic.
type Source struct {
	Name   string
	Kind   ast.StreamType
	Topic  string
	Schema *model.Schema
	// TimestampColumn names the event time column, empty for the record timestamp
	TimestampColumn string
	// Query is the id of the persistent query deriving this source
	Query string
}

// Topic is a log topic and the codec of its values.
type Topic struct {
	Name       string
	Format     string
	Partitions int
}

// Store is the schema registry. Names are case-insensitive. All the
// registrations are written through to the optional kv mirror.
type Store struct {
	mu      sync.RWMutex
	sources map[string]*Source
	topics  map[string]*Topic
	mirror  kv.KeyValue
}

func NewStore(mirror kv.KeyValue) *Store {
	return &Store{
		sources: make(map[string]*Source),
		topics:  make(map[string]*Topic),
		mirror:  mirror,
	}
}

func nameKey(name string) string {
	return strings.ToUpper(name)
}

func (s *Store) PutTopic(t *Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putTopic(t)
}

func (s *Store) putTopic(t *Topic) error {
	k := nameKey(t.Name)
	if _, ok := s.topics[k]; ok {
		return &errorx.DuplicateNameError{Kind: "topic", Name: t.Name}
	}
	if s.mirror != nil {
		if err := s.mirror.Setnx(topicPrefix+k, toTopicRecord(t)); err != nil {
			return fmt.Errorf("persist topic %s error: %v", t.Name, err)
		}
	}
	s.topics[k] = t
	return nil
}

func (s *Store) PutSource(src *Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putSource(src)
}

func (s *Store) putSource(src *Source) error {
	k := nameKey(src.Name)
	if _, ok := s.sources[k]; ok {
		return &errorx.DuplicateNameError{Kind: src.Kind.String(), Name: src.Name}
	}
	if s.mirror != nil {
		if err := s.mirror.Setnx(sourcePrefix+k, toSourceRecord(src)); err != nil {
			return fmt.Errorf("persist %s %s error: %v", src.Kind, src.Name, err)
		}
	}
	s.sources[k] = src
	return nil
}

// PutSourceWithTopic registers a source and its topic together. Nothing is
// registered if either fails.
func (s *Store) PutSourceWithTopic(src *Source, t *Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[nameKey(src.Name)]; ok {
		return &errorx.DuplicateNameError{Kind: src.Kind.String(), Name: src.Name}
	}
	if err := s.putTopic(t); err != nil {
		return err
	}
	if err := s.putSource(src); err != nil {
		s.removeTopic(nameKey(t.Name))
		return err
	}
	return nil
}

func (s *Store) GetSource(name string) (*Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if src, ok := s.sources[nameKey(name)]; ok {
		return src, nil
	}
	return nil, &errorx.UnknownSourceError{Name: name}
}

func (s *Store) GetTopic(name string) (*Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.topics[nameKey(name)]; ok {
		return t, nil
	}
	return nil, &errorx.UnknownTopicError{Name: name}
}

// DropSource removes a source. The topic stays registered.
func (s *Store) DropSource(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := nameKey(name)
	if _, ok := s.sources[k]; !ok {
		return &errorx.UnknownSourceError{Name: name}
	}
	delete(s.sources, k)
	s.unmirror(sourcePrefix + k)
	return nil
}

func (s *Store) DropTopic(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := nameKey(name)
	if _, ok := s.topics[k]; !ok {
		return &errorx.UnknownTopicError{Name: name}
	}
	s.removeTopic(k)
	return nil
}

func (s *Store) removeTopic(k string) {
	delete(s.topics, k)
	s.unmirror(topicPrefix + k)
}

func (s *Store) unmirror(key string) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Delete(key); err != nil {
		conf.Log.Warnf("delete %s from the registry mirror error: %v", key, err)
	}
}

// ListSources returns the sources of the kind ordered by name.
func (s *Store) ListSources(kind ast.StreamType) []*Source {
	s.mu.RLock()
	result := make([]*Source, 0, len(s.sources))
	for _, src := range s.sources {
		if src.Kind == kind {
			result = append(result, src)
		}
	}
	s.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		return nameKey(result[i].Name) < nameKey(result[j].Name)
	})
	return result
}

// ListTopics returns the registered topics ordered by name.
func (s *Store) ListTopics() []*Topic {
	s.mu.RLock()
	result := make([]*Topic, 0, len(s.topics))
	for _, t := range s.topics {
		result = append(result, t)
	}
	s.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		return nameKey(result[i].Name) < nameKey(result[j].Name)
	})
	return result
}
