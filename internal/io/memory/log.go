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

package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/lf-edge/kql/internal/conf"
	"github.com/lf-edge/kql/pkg/api"
	"github.com/lf-edge/kql/pkg/errorx"
)

var ErrClosed = errors.New("memory log is closed")

type partition struct {
	records []api.Record
}

type topic struct {
	name       string
	partitions []*partition
	// notify is closed and replaced on every append
	notify chan struct{}
}

// Log is an in-process partitioned append-only log. Records are kept for the
// life of the log so every subscription replays from the earliest offset.
type Log struct {
	mu       sync.RWMutex
	topics   map[string]*topic
	balancer kafkago.Balancer
	closed   bool
	done     chan struct{}
}

func NewLog() *Log {
	return &Log{
		topics:   make(map[string]*topic),
		balancer: &kafkago.Murmur2Balancer{},
		done:     make(chan struct{}),
	}
}

func (l *Log) CreateTopic(_ context.Context, name string, partitions int) error {
	if partitions <= 0 {
		partitions = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if _, ok := l.topics[name]; ok {
		return nil
	}
	t := &topic{
		name:       name,
		partitions: make([]*partition, partitions),
		notify:     make(chan struct{}),
	}
	for i := range t.partitions {
		t.partitions[i] = &partition{}
	}
	l.topics[name] = t
	conf.Log.Debugf("memory log create topic %s with %d partitions", name, partitions)
	return nil
}

func (l *Log) DeleteTopic(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.topics[name]
	if !ok {
		return &errorx.UnknownTopicError{Name: name}
	}
	delete(l.topics, name)
	close(t.notify)
	return nil
}

// Append writes the record to the partition chosen by the murmur2 hash of the key.
func (l *Log) Append(ctx context.Context, name string, key, value []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return -1, ErrClosed
	}
	t, ok := l.topics[name]
	if !ok {
		return -1, &errorx.UnknownTopicError{Name: name}
	}
	ids := make([]int, len(t.partitions))
	for i := range ids {
		ids[i] = i
	}
	p := 0
	if len(ids) > 1 {
		p = l.balancer.Balance(kafkago.Message{Key: key}, ids...)
	}
	part := t.partitions[p]
	offset := int64(len(part.records))
	part.records = append(part.records, api.Record{
		Topic:     name,
		Partition: p,
		Offset:    offset,
		Key:       clone(key),
		Value:     clone(value),
		Timestamp: conf.GetNow(),
	})
	close(t.notify)
	t.notify = make(chan struct{})
	return offset, nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	r := make([]byte, len(b))
	copy(r, b)
	return r
}

func (l *Log) Subscribe(_ context.Context, name string) (api.Subscription, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrClosed
	}
	t, ok := l.topics[name]
	if !ok {
		return nil, &errorx.UnknownTopicError{Name: name}
	}
	return &subscription{
		log:     l,
		topic:   t,
		offsets: make([]int64, len(t.partitions)),
		closed:  make(chan struct{}),
	}, nil
}

// Records returns a snapshot of all the records of a topic ordered by
// partition then offset.
func (l *Log) Records(name string) ([]api.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.topics[name]
	if !ok {
		return nil, &errorx.UnknownTopicError{Name: name}
	}
	var r []api.Record
	for _, p := range t.partitions {
		r = append(r, p.records...)
	}
	return r, nil
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.done)
	return nil
}

type subscription struct {
	log     *Log
	topic   *topic
	offsets []int64
	// next is the partition to look at first, partitions are read round-robin
	next      int
	closeOnce sync.Once
	closed    chan struct{}
}

func (s *subscription) Next(ctx context.Context) (*api.Record, error) {
	for {
		rec, wait, err := s.poll()
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.closed:
			return nil, fmt.Errorf("subscription of topic %s is closed", s.topic.name)
		case <-s.log.done:
			return nil, ErrClosed
		}
	}
}

func (s *subscription) poll() (*api.Record, <-chan struct{}, error) {
	s.log.mu.RLock()
	defer s.log.mu.RUnlock()
	if s.log.topics[s.topic.name] != s.topic {
		return nil, nil, &errorx.UnknownTopicError{Name: s.topic.name}
	}
	n := len(s.topic.partitions)
	for i := 0; i < n; i++ {
		p := (s.next + i) % n
		part := s.topic.partitions[p]
		if s.offsets[p] < int64(len(part.records)) {
			rec := part.records[s.offsets[p]]
			s.offsets[p]++
			s.next = (p + 1) % n
			return &rec, nil, nil
		}
	}
	return nil, s.topic.notify, nil
}

func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	return nil
}
