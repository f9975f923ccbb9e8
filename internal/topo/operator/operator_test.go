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

package operator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lf-edge/kql/internal/xsql"
	"github.com/lf-edge/kql/pkg/model"
)

var schema = model.MustSchema([]model.Column{
	{Name: "ID", Type: model.BigintType},
	{Name: "NAME", Type: model.StringType},
	{Name: "UNITS", Type: model.DoubleType},
	{Name: "PRICES", Type: model.ArrayOf(model.DoubleType)},
}, "ID")

func predicate(t *testing.T, text string) xsql.Evaluator {
	e, err := xsql.ParseExpr(text)
	require.NoError(t, err)
	ev, err := xsql.CompilePredicate(e, schema, "WHERE")
	require.NoError(t, err)
	return ev
}

func expr(t *testing.T, text string) xsql.Evaluator {
	e, err := xsql.ParseExpr(text)
	require.NoError(t, err)
	ev, err := xsql.Compile(e, schema)
	require.NoError(t, err)
	return ev
}

func tuple(vs ...model.Value) *xsql.Tuple {
	return &xsql.Tuple{Row: model.NewRow(vs...), Timestamp: 7, Partition: 1}
}

func TestFilterOp(t *testing.T) {
	tests := []struct {
		cond  string
		data  any
		keep  bool
		error string
	}{
		{cond: "UNITS > 60", data: tuple(model.Int(1), model.Str("a"), model.Float(80), model.Null), keep: true},
		{cond: "UNITS > 60", data: tuple(model.Int(1), model.Str("a"), model.Float(10), model.Null)},
		{cond: "UNITS > 60", data: tuple(model.Int(1), model.Str("a"), model.Null, model.Null)},
		{cond: "NAME LIKE 'a%' OR UNITS IS NULL", data: tuple(model.Int(1), model.Str("b"), model.Null, model.Null), keep: true},
		{cond: "PRICES[1] = 2.0", data: tuple(model.Int(1), model.Str("b"), model.Null, model.Array(model.DoubleType, model.Float(1), model.Float(2))), keep: true},
		{cond: "PRICES[5] = 2.0", data: tuple(model.Int(1), model.Str("b"), model.Null, model.Array(model.DoubleType, model.Float(1)))},
		{cond: "UNITS > 60", data: "not a tuple", error: "run Where error: invalid input string(not a tuple)"},
		{cond: "UNITS > 60", data: errors.New("upstream"), error: "upstream"},
	}
	for i, tt := range tests {
		op := &FilterOp{Condition: predicate(t, tt.cond)}
		r := op.Apply(context.Background(), tt.data)
		if tt.error != "" {
			err, ok := r.(error)
			require.True(t, ok, "case %d", i)
			assert.EqualError(t, err, tt.error, "case %d", i)
			continue
		}
		if tt.keep {
			assert.Equal(t, tt.data, r, "case %d", i)
		} else {
			assert.Nil(t, r, "case %d", i)
		}
	}
}

func TestHavingOp(t *testing.T) {
	op := NewHavingOp(predicate(t, "UNITS > 130"))
	in := tuple(model.Int(1), model.Str("a"), model.Float(160), model.Null)
	assert.Equal(t, in, op.Apply(context.Background(), in))
	assert.Nil(t, op.Apply(context.Background(), tuple(model.Int(1), model.Str("a"), model.Float(80), model.Null)))
	r := op.Apply(context.Background(), 3)
	assert.EqualError(t, r.(error), "run Having error: run Where error: invalid input int(3)")
}

func TestProjectOp(t *testing.T) {
	op := &ProjectOp{Fields: []xsql.Evaluator{
		expr(t, "NAME"),
		expr(t, "UNITS * 10"),
		expr(t, "PRICES[0] + 10"),
		nil,
		expr(t, "ID / 0"),
	}}
	in := tuple(model.Int(8), model.Str("ITEM_8"), model.Float(80), model.Array(model.DoubleType, model.Float(1100)))
	in.Key = []byte("8")
	r := op.Apply(context.Background(), in)
	out, ok := r.(*xsql.Tuple)
	require.True(t, ok)
	assert.Equal(t, int64(7), out.Timestamp)
	assert.Equal(t, 1, out.Partition)
	// the input key survives the projection of the key column away
	assert.Equal(t, "8", string(out.Key))
	exp := model.NewRow(model.Str("ITEM_8"), model.Float(800), model.Float(1110), model.Null, model.Null)
	assert.True(t, exp.Equal(out.Row), "got %s", out.Row)
}
