// Copyright 2024 EMQ Technologies Co., Ltd.
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

package api

import (
	"context"
	"time"
)

// Record is one entry read from a topic partition.
type Record struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

// Log is an ordered, partitioned, append-only message bus with at-least-once delivery.
type Log interface {
	// CreateTopic creates the topic if absent. Creating an existing topic is not an error.
	CreateTopic(ctx context.Context, topic string, partitions int) error
	// Append writes one record, partitioned by key, and returns its offset in the partition.
	Append(ctx context.Context, topic string, key, value []byte) (int64, error)
	// Subscribe reads the topic from the earliest offset of every partition.
	Subscribe(ctx context.Context, topic string) (Subscription, error)
	Close() error
}

// Subscription is a lazy, unbounded sequence of records. Records of one
// partition are returned in offset order.
type Subscription interface {
	// Next blocks until a record is available or ctx is done.
	Next(ctx context.Context) (*Record, error)
	Close() error
}

// TopicDeleter is implemented by logs that can drop a topic and its data.
type TopicDeleter interface {
	DeleteTopic(ctx context.Context, topic string) error
}
