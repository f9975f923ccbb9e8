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
	"time"

	"github.com/lf-edge/kql/internal/binder/function"
	"github.com/lf-edge/kql/internal/topo/operator"
	"github.com/lf-edge/kql/internal/topo/state"
	"github.com/lf-edge/kql/internal/xsql"
	"github.com/lf-edge/kql/metrics"
	"github.com/lf-edge/kql/pkg/infra"
)

// WindowAggOp groups, windows and aggregates the tuples of the aggregation
// input projection: the group by values followed by one argument per
// aggregate. Every update emits the HAVING filtered final projection keyed by
// the windowed group key.
type WindowAggOp struct {
	*defaultSinkNode
	assigner  state.Assigner
	grace     time.Duration
	groupLen  int
	aggs      []*function.Aggregate
	having    *operator.HavingOp
	project   *operator.ProjectOp
	store     *state.WindowStore
	watermark *state.Watermark
}

type WindowAggConf struct {
	Assigner   state.Assigner
	Grace      time.Duration
	Partitions int
	GroupLen   int
	Aggs       []*function.Aggregate
	Having     xsql.Evaluator
	Projected  []xsql.Evaluator
}

func NewWindowAggOp(queryID, name string, bufferLength int, c *WindowAggConf) *WindowAggOp {
	o := &WindowAggOp{
		defaultSinkNode: newDefaultSinkNode(queryID, name, bufferLength),
		assigner:        c.Assigner,
		grace:           c.Grace,
		groupLen:        c.GroupLen,
		aggs:            c.Aggs,
		project:         &operator.ProjectOp{Fields: c.Projected},
	}
	if c.Having != nil {
		o.having = operator.NewHavingOp(c.Having)
	}
	o.store = state.NewWindowStore(o.newAccumulators)
	o.watermark = state.NewWatermark(c.Partitions)
	return o
}

func (o *WindowAggOp) newAccumulators() []function.Accumulator {
	r := make([]function.Accumulator, len(o.aggs))
	for i, a := range o.aggs {
		r[i] = a.NewAccumulator()
	}
	return r
}

// Store exposes the window state, it must only be read when the node is stopped.
func (o *WindowAggOp) Store() *state.WindowStore {
	return o.store
}

// ClearState drops every window, the node must be stopped.
func (o *WindowAggOp) ClearState() {
	o.store.Clear()
}

func (o *WindowAggOp) Exec(ctx context.Context, errCh chan<- error) {
	defer o.logger.Infof("window aggregate operator %s done", o.name)
	late := metrics.LateRowCounter.WithLabelValues(o.queryID)
	for {
		select {
		case item := <-o.input:
			o.recordsIn.Inc()
			t, ok := item.(*xsql.Tuple)
			if !ok {
				o.logger.Errorf("window aggregate operator %s receives invalid input %T", o.name, item)
				continue
			}
			results, err := o.process(t)
			if err != nil {
				o.logger.Errorf("Operation %s error: %s", o.name, err)
				infra.DrainError(ctx, err, errCh)
				return
			}
			if results == nil {
				late.Inc()
				continue
			}
			for _, r := range results {
				if !o.Broadcast(ctx, r) {
					return
				}
			}
			o.expire()
		case <-ctx.Done():
			return
		}
	}
}

// process folds one tuple into all its live windows. It returns nil for a
// late tuple and an empty slice when HAVING filters out every update.
func (o *WindowAggOp) process(t *xsql.Tuple) ([]*xsql.Tuple, error) {
	wm, seen := o.watermark.Current()
	var live []state.Window
	for _, w := range o.assigner.Assign(t.Timestamp) {
		if seen && w.Expired(wm, o.grace) {
			continue
		}
		live = append(live, w)
	}
	if len(live) == 0 {
		o.logger.Debugf("drop late row at %d, watermark %d", t.Timestamp, wm)
		return nil, nil
	}
	o.watermark.Observe(t.Partition, t.Timestamp)

	values := t.Row.Values()
	group := values[:o.groupLen]
	args := values[o.groupLen:]
	key := state.GroupKey(group)
	results := make([]*xsql.Tuple, 0, len(live))
	for _, w := range live {
		acc := o.store.GetOrCreate(state.WindowedKey{Key: key, Start: w.Start, End: w.End}, group)
		acc.Add(args)
		post := acc.Row()
		if o.having != nil {
			ok, err := o.having.Match(post)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out, err := o.project.Project(post)
		if err != nil {
			return nil, err
		}
		results = append(results, &xsql.Tuple{
			Row:       out,
			Timestamp: t.Timestamp,
			Partition: t.Partition,
			Key:       state.EncodeWindowedKey([]byte(key), w.Start),
		})
	}
	return results, nil
}

func (o *WindowAggOp) expire() {
	wm, seen := o.watermark.Current()
	if !seen {
		return
	}
	expired := o.store.Expire(func(k state.WindowedKey) bool {
		return state.Window{Start: k.Start, End: k.End}.Expired(wm, o.grace)
	})
	if len(expired) > 0 {
		o.logger.Debugf("expire %d windows at watermark %d", len(expired), wm)
	}
}
