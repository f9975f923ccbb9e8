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
	"errors"
	"fmt"

	"github.com/lf-edge/kql/internal/xsql"
	"github.com/lf-edge/kql/metrics"
	"github.com/lf-edge/kql/pkg/api"
	"github.com/lf-edge/kql/pkg/errorx"
	"github.com/lf-edge/kql/pkg/infra"
	"github.com/lf-edge/kql/pkg/model"
)

// SourceNode reads a topic from the earliest offset, decodes every record
// with the topic codec and stamps its event time.
type SourceNode struct {
	*defaultNode
	log    api.Log
	topic  string
	codec  api.RecordCodec
	schema *model.Schema
	// tsIndex is the timestamp column or -1 for the record timestamp
	tsIndex int
	ready   chan struct{}
}

func NewSourceNode(queryID, name string, log api.Log, topic string, codec api.RecordCodec, schema *model.Schema, tsIndex int) *SourceNode {
	return &SourceNode{
		defaultNode: newDefaultNode(queryID, name),
		log:         log,
		topic:       topic,
		codec:       codec,
		schema:      schema,
		tsIndex:     tsIndex,
		ready:       make(chan struct{}),
	}
}

// Ready is closed once the subscription is established.
func (m *SourceNode) Ready() <-chan struct{} {
	return m.ready
}

func (m *SourceNode) Open(ctx context.Context, errCh chan<- error) {
	m.logger.Infof("open source node %s on topic %s", m.name, m.topic)
	sub, err := m.log.Subscribe(ctx, m.topic)
	if err != nil {
		infra.DrainError(ctx, fmt.Errorf("subscribe topic %s error: %w", m.topic, err), errCh)
		return
	}
	close(m.ready)
	defer func() {
		_ = sub.Close()
		m.logger.Infof("source node %s done", m.name)
	}()
	decodeErrors := metrics.DecodeErrorCounter.WithLabelValues(m.queryID)
	for {
		rec, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			infra.DrainError(ctx, fmt.Errorf("read topic %s error: %w", m.topic, err), errCh)
			return
		}
		m.recordsIn.Inc()
		row, err := m.codec.Decode(rec.Value, m.schema)
		if err != nil {
			decodeErrors.Inc()
			m.logger.Warn(&errorx.DecodeError{Topic: rec.Topic, Partition: rec.Partition, Offset: rec.Offset, Err: err})
			continue
		}
		if !m.Broadcast(ctx, &xsql.Tuple{Row: row, Timestamp: m.eventTime(row, rec), Partition: rec.Partition, Key: m.recordKey(row, rec)}) {
			return
		}
	}
}

// eventTime falls back to the record timestamp when the timestamp column is null.
func (m *SourceNode) eventTime(row model.Row, rec *api.Record) int64 {
	if m.tsIndex >= 0 {
		if v := row.Get(m.tsIndex); v.Kind() == model.KindBigint {
			return v.Int()
		}
	}
	return rec.Timestamp.UnixMilli()
}

// recordKey prefers the key column and falls back to the record key.
func (m *SourceNode) recordKey(row model.Row, rec *api.Record) []byte {
	if m.schema.Key >= 0 {
		if v := row.Get(m.schema.Key); !v.IsNull() {
			return []byte(v.String())
		}
	}
	return rec.Key
}
