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

package planner

import (
	"fmt"
	"time"

	"github.com/lf-edge/kql/internal/binder/function"
	"github.com/lf-edge/kql/internal/conf"
	"github.com/lf-edge/kql/internal/converter"
	"github.com/lf-edge/kql/internal/topo"
	"github.com/lf-edge/kql/internal/topo/node"
	"github.com/lf-edge/kql/internal/topo/operator"
	"github.com/lf-edge/kql/internal/topo/state"
	"github.com/lf-edge/kql/internal/xsql"
	"github.com/lf-edge/kql/pkg/api"
	"github.com/lf-edge/kql/pkg/errorx"
)

// TopoOptions tune the nodes of a built topo.
type TopoOptions struct {
	BufferLength int
	Grace        time.Duration
	SinkRetry    conf.RetryConf
	// OnAppend is called by the sink after every appended row
	OnAppend func(offset int64)
}

type builder struct {
	id    string
	log   api.Log
	opts  *TopoOptions
	tp    *topo.Topo
	index int

	// partitions of the input topic
	partitions int
}

// CreateTopo turns the logical plan into a runnable topo, one node per
// logical operator. Window assignment and HAVING run inside the aggregate node.
func CreateTopo(id string, p *Plan, log api.Log, opts *TopoOptions) (t *topo.Topo, err error) {
	defer func() {
		if err != nil {
			err = errorx.NewWithCode(errorx.CompileErr, err.Error())
		}
	}()
	if opts == nil {
		opts = &TopoOptions{}
	}
	sp, ok := p.Logical.(*SinkPlan)
	if !ok {
		return nil, fmt.Errorf("the root of the plan must be a sink but got %T", p.Logical)
	}
	b := &builder{id: id, log: log, opts: opts, tp: topo.NewWithName(id)}
	input, err := b.buildOps(sp.children[0])
	if err != nil {
		return nil, err
	}
	codec, err := converter.GetCodec(sp.topic.Format)
	if err != nil {
		return nil, err
	}
	snk := node.NewSinkNode(id, sp.source.Name, opts.BufferLength, log, sp.topic.Name, codec, sp.source.Schema, opts.SinkRetry)
	if opts.OnAppend != nil {
		snk.SetOnAppend(opts.OnAppend)
	}
	if _, err := b.tp.AddSink([]node.Emitter{input}, snk); err != nil {
		return nil, err
	}
	return b.tp, nil
}

func (b *builder) nextName(kind string) string {
	b.index++
	return fmt.Sprintf("%d_%s", b.index, kind)
}

func (b *builder) buildOps(lp LogicalPlan) (node.Emitter, error) {
	switch t := lp.(type) {
	case *HavingPlan:
		return b.buildAggregate(t.children[0].(*AggregatePlan), t.eval)
	case *AggregatePlan:
		return b.buildAggregate(t, nil)
	case *DataSourcePlan:
		codec, err := converter.GetCodec(t.topic.Format)
		if err != nil {
			return nil, err
		}
		src := node.NewSourceNode(b.id, t.source.Name, b.log, t.topic.Name, codec, t.source.Schema, t.tsIndex)
		b.tp.AddSrc(src)
		b.partitions = t.topic.Partitions
		return src, nil
	}
	var inputs []node.Emitter
	for _, child := range lp.Children() {
		input, err := b.buildOps(child)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	var op *node.UnaryOperator
	switch t := lp.(type) {
	case *FilterPlan:
		op = node.New(b.id, b.nextName("filter"), b.opts.BufferLength)
		op.SetOperation(&operator.FilterOp{Condition: t.eval})
	case *ProjectPlan:
		op = node.New(b.id, b.nextName("project"), b.opts.BufferLength)
		op.SetOperation(&operator.ProjectOp{Fields: t.fields})
	default:
		return nil, fmt.Errorf("unknown logical plan %T", lp)
	}
	if _, err := b.tp.AddOperator(inputs, op); err != nil {
		return nil, err
	}
	return op, nil
}

func (b *builder) buildAggregate(p *AggregatePlan, having xsql.Evaluator) (node.Emitter, error) {
	wp := p.windowPlan()
	input, err := b.buildOps(wp.children[0])
	if err != nil {
		return nil, err
	}
	assigner, err := state.NewAssigner(wp.window)
	if err != nil {
		return nil, err
	}
	aggs := make([]*function.Aggregate, len(p.aggs))
	for i, a := range p.aggs {
		aggs[i] = a.Func
	}
	op := node.NewWindowAggOp(b.id, b.nextName("aggregate"), b.opts.BufferLength, &node.WindowAggConf{
		Assigner:   assigner,
		Grace:      b.opts.Grace,
		Partitions: b.partitions,
		GroupLen:   len(p.dimensions),
		Aggs:       aggs,
		Having:     having,
		Projected:  p.projected,
	})
	if _, err := b.tp.AddOperator([]node.Emitter{input}, op); err != nil {
		return nil, err
	}
	return op, nil
}
