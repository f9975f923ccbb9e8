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

package node

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lf-edge/kql/internal/conf"
	"github.com/lf-edge/kql/internal/xsql"
	"github.com/lf-edge/kql/pkg/api"
	"github.com/lf-edge/kql/pkg/errorx"
	"github.com/lf-edge/kql/pkg/infra"
	"github.com/lf-edge/kql/pkg/model"
)

// SinkNode encodes the tuples with the destination codec and appends them
// to the destination topic.
type SinkNode struct {
	*defaultSinkNode
	log    api.Log
	topic  string
	codec  api.RecordCodec
	schema *model.Schema
	retry  conf.RetryConf
	// onAppend is called after every successful append
	onAppend func(offset int64)
}

func NewSinkNode(queryID, name string, bufferLength int, log api.Log, topic string, codec api.RecordCodec, schema *model.Schema, retry conf.RetryConf) *SinkNode {
	return &SinkNode{
		defaultSinkNode: newDefaultSinkNode(queryID, name, bufferLength),
		log:             log,
		topic:           topic,
		codec:           codec,
		schema:          schema,
		retry:           retry,
	}
}

// SetOnAppend installs a hook called after every successful append.
func (m *SinkNode) SetOnAppend(f func(offset int64)) {
	m.onAppend = f
}

func (m *SinkNode) Open(ctx context.Context, errCh chan<- error) {
	m.logger.Infof("open sink node %s to topic %s", m.name, m.topic)
	defer m.logger.Infof("sink node %s done", m.name)
	for {
		select {
		case item := <-m.input:
			m.recordsIn.Inc()
			t, ok := item.(*xsql.Tuple)
			if !ok {
				m.logger.Errorf("sink node %s receives invalid input %T", m.name, item)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			if err := m.write(ctx, t); err != nil {
				if ctx.Err() != nil {
					return
				}
				infra.DrainError(ctx, err, errCh)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *SinkNode) write(ctx context.Context, t *xsql.Tuple) error {
	value, err := m.codec.Encode(t.Row, m.schema)
	if err != nil {
		return fmt.Errorf("encode row %s error: %w", t.Row, err)
	}
	// the tuple key wins, the key column only covers tuples built without one
	key := t.Key
	if key == nil && m.schema.Key >= 0 {
		if v := t.Row.Get(m.schema.Key); !v.IsNull() {
			key = []byte(v.String())
		}
	}
	var offset int64
	op := func() error {
		var err error
		offset, err = m.log.Append(ctx, m.topic, key, value)
		if err != nil && !errorx.IsRecoverAbleError(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		m.logger.Warnf("append to topic %s error: %v, retry in %s", m.topic, err, wait)
	}
	if err := backoff.RetryNotify(op, m.backOff(ctx), notify); err != nil {
		return fmt.Errorf("append to topic %s error: %w", m.topic, err)
	}
	m.Broadcast(ctx, t)
	if m.onAppend != nil {
		m.onAppend(offset)
	}
	return nil
}

func (m *SinkNode) backOff(ctx context.Context) backoff.BackOff {
	delay := time.Duration(m.retry.Delay) * time.Millisecond
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	maxDelay := time.Duration(m.retry.MaxDelay) * time.Millisecond
	if maxDelay < delay {
		maxDelay = delay
	}
	var b backoff.BackOff = backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(delay),
		backoff.WithMaxInterval(maxDelay),
		backoff.WithMaxElapsedTime(0),
	)
	if m.retry.Attempts >= 0 {
		b = backoff.WithMaxRetries(b, uint64(m.retry.Attempts))
	}
	return backoff.WithContext(b, ctx)
}
