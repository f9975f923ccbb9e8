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

package xsql

import (
	"github.com/lf-edge/kql/internal/binder/function"
	"github.com/lf-edge/kql/pkg/ast"
	"github.com/lf-edge/kql/pkg/errorx"
	"github.com/lf-edge/kql/pkg/model"
)

// AggregateCall is one distinct aggregate of an aggregate query. Arg is nil for COUNT(*).
type AggregateCall struct {
	Func *function.Aggregate
	Arg  Evaluator
	Expr *ast.Call
}

// AggregateBinder binds the projections and HAVING of an aggregate query.
// The bound evaluators read a post aggregation row laid out as the group by
// values followed by the results of Aggregates in order.
type AggregateBinder struct {
	input      *model.Schema
	dims       ast.Dimensions
	groupEvals []Evaluator
	aggs       []*AggregateCall
}

// NewAggregateBinder binds the group by expressions against the input schema.
func NewAggregateBinder(input *model.Schema, dims ast.Dimensions) (*AggregateBinder, error) {
	b := &AggregateBinder{input: input, dims: dims}
	c := &compiler{schema: input, clause: "GROUP BY"}
	for _, d := range dims {
		ev, err := c.compile(d)
		if err != nil {
			return nil, err
		}
		b.groupEvals = append(b.groupEvals, ev)
	}
	return b, nil
}

// GroupBy returns the group by evaluators over the input row.
func (b *AggregateBinder) GroupBy() []Evaluator {
	return b.groupEvals
}

// Aggregates returns the distinct aggregate calls bound so far.
func (b *AggregateBinder) Aggregates() []*AggregateCall {
	return b.aggs
}

// Bind compiles an expression over the post aggregation row.
func (b *AggregateBinder) Bind(expr ast.Expr, clause string) (Evaluator, error) {
	c := &compiler{schema: b.input, clause: clause}
	c.hook = b.hook(clause)
	return c.compile(expr)
}

// BindPredicate is Bind for HAVING.
func (b *AggregateBinder) BindPredicate(expr ast.Expr, clause string) (Evaluator, error) {
	ev, err := b.Bind(expr, clause)
	if err != nil {
		return nil, err
	}
	if err := checkBoolean(ev, clause); err != nil {
		return nil, err
	}
	return ev, nil
}

func (b *AggregateBinder) hook(clause string) hookFunc {
	return func(e ast.Expr) (Evaluator, bool, error) {
		for i, d := range b.dims {
			if ast.Equal(e, d) {
				return &slotEval{index: i, typ: b.groupEvals[i].Type(), expr: e}, true, nil
			}
		}
		switch n := e.(type) {
		case *ast.Call:
			if !function.IsAggFunc(n.Name) {
				return nil, false, nil
			}
			slot, err := b.bindAggregate(n)
			if err != nil {
				return nil, true, err
			}
			return &slotEval{index: len(b.dims) + slot, typ: b.aggs[slot].Func.ResultType, expr: e}, true, nil
		case *ast.FieldRef:
			if _, ok := b.input.IndexOf(n.Name); ok {
				return nil, true, errorx.NewInvalidStatement("column %s in %s must appear in GROUP BY or be used in an aggregate function", n.Name, clause)
			}
			return nil, true, &errorx.UnknownColumnError{Name: n.Name}
		}
		return nil, false, nil
	}
}

// bindAggregate returns the slot of the call, reusing an equal call.
func (b *AggregateBinder) bindAggregate(call *ast.Call) (int, error) {
	for i, a := range b.aggs {
		if ast.Equal(a.Expr, call) {
			return i, nil
		}
	}
	var nested string
	for _, arg := range call.Args {
		ast.WalkFunc(arg, func(n ast.Node) bool {
			if c, ok := n.(*ast.Call); ok && function.IsAggFunc(c.Name) {
				nested = c.Name
				return false
			}
			return true
		})
	}
	if nested != "" {
		return 0, errorx.NewInvalidStatement("aggregate function %s cannot be nested in %s", nested, call.Name)
	}
	var (
		fn  *function.Aggregate
		arg Evaluator
		err error
	)
	if len(call.Args) == 1 {
		if _, ok := call.Args[0].(*ast.Wildcard); ok {
			fn, err = function.BindAggregate(call.Name, nil, true)
			if err != nil {
				return 0, err
			}
			b.aggs = append(b.aggs, &AggregateCall{Func: fn, Expr: call})
			return len(b.aggs) - 1, nil
		}
	}
	if len(call.Args) != 1 {
		return 0, errorx.NewTypeMismatch("aggregate function %s expects 1 argument but found %d", call.Name, len(call.Args))
	}
	arg, err = Compile(call.Args[0], b.input)
	if err != nil {
		return 0, err
	}
	fn, err = function.BindAggregate(call.Name, []model.Type{arg.Type()}, false)
	if err != nil {
		return 0, err
	}
	b.aggs = append(b.aggs, &AggregateCall{Func: fn, Arg: arg, Expr: call})
	return len(b.aggs) - 1, nil
}

// HasAggregate tells if the expression calls any aggregate function.
func HasAggregate(e ast.Expr) bool {
	found := false
	ast.WalkFunc(e, func(n ast.Node) bool {
		if c, ok := n.(*ast.Call); ok && function.IsAggFunc(c.Name) {
			found = true
			return false
		}
		return true
	})
	return found
}
