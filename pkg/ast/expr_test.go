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

package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExprString(t *testing.T) {
	tests := []struct {
		e Expr
		s string
	}{
		{
			e: &BinaryExpr{OP: MUL, LHS: &FieldRef{Name: "orderUnits"}, RHS: &IntegerLiteral{Val: 10}},
			s: "(ORDERUNITS * 10)",
		},
		{
			e: &BinaryExpr{OP: ADD, LHS: &IndexExpr{Expr: &FieldRef{Name: "priceArray"}, Index: &IntegerLiteral{Val: 0}}, RHS: &NumberLiteral{Val: 10.5}},
			s: "(PRICEARRAY[0] + 10.5)",
		},
		{
			e: &IndexExpr{Expr: &FieldRef{Name: "m"}, Index: &StringLiteral{Val: "it's"}},
			s: "M['it''s']",
		},
		{
			e: &Call{Name: "count", Args: []Expr{&Wildcard{Token: ASTERISK}}},
			s: "COUNT(*)",
		},
		{
			e: &UnaryExpr{OP: NOT, Expr: &IsNullExpr{Expr: &FieldRef{Name: "a"}, Not: true}},
			s: "(NOT (A IS NOT NULL))",
		},
		{
			e: &BinaryExpr{OP: NOTLIKE, LHS: &FieldRef{Name: "a"}, RHS: &StringLiteral{Val: "%_8"}},
			s: "(A NOT LIKE '%_8')",
		},
		{
			e: &UnaryExpr{OP: SUB, Expr: &NullLiteral{}},
			s: "(-NULL)",
		},
	}
	for i, tt := range tests {
		assert.Equal(t, tt.s, tt.e.String(), "case %d", i)
	}
}

func TestEqual(t *testing.T) {
	a := &BinaryExpr{OP: ADD, LHS: &FieldRef{Name: "itemId"}, RHS: &StringLiteral{Val: "x"}}
	b := &ParenExpr{Expr: &BinaryExpr{OP: ADD, LHS: &ParenExpr{Expr: &FieldRef{Name: "ITEMID"}}, RHS: &StringLiteral{Val: "x"}}}
	c := &BinaryExpr{OP: ADD, LHS: &FieldRef{Name: "itemId"}, RHS: &StringLiteral{Val: "X"}}
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.True(t, Equal(&Call{Name: "sum", Args: []Expr{&FieldRef{Name: "u"}}}, &Call{Name: "SUM", Args: []Expr{&FieldRef{Name: "U"}}}))
}

func TestLookup(t *testing.T) {
	assert.Equal(t, SELECT, Lookup("select"))
	assert.Equal(t, MILLISECOND, Lookup("MILLISECONDS"))
	assert.Equal(t, SECOND, Lookup("second"))
	assert.Equal(t, AND, Lookup("and"))
	assert.Equal(t, IDENT, Lookup("ORDERUNITS"))
	assert.Equal(t, IDENT, Lookup("KAFKA_TOPIC"))
}

func TestOptionsSet(t *testing.T) {
	o := &Options{}
	assert.NoError(t, o.Set("kafka_topic", &StringLiteral{Val: "orders_topic"}))
	assert.NoError(t, o.Set("VALUE_FORMAT", &StringLiteral{Val: "json"}))
	assert.NoError(t, o.Set("partitions", &IntegerLiteral{Val: 4}))
	assert.Equal(t, &Options{KAFKA_TOPIC: "orders_topic", VALUE_FORMAT: "json", PARTITIONS: 4}, o)
	assert.EqualError(t, o.Set("partitions", &IntegerLiteral{Val: 0}), "property partitions expects a positive integer, but got 0")
	assert.EqualError(t, o.Set("KEY", &IntegerLiteral{Val: 1}), "property KEY expects a string, but got 1")
	assert.EqualError(t, o.Set("FOO", &StringLiteral{Val: "x"}), "unknown property FOO")
}

func TestWalk(t *testing.T) {
	stmt := &SelectStatement{
		Fields: Fields{
			{Name: "ITEMID", Expr: &FieldRef{Name: "ITEMID"}},
			{Name: "KSQL_COL_1", Expr: &Call{Name: "SUM", Args: []Expr{&FieldRef{Name: "ORDERUNITS"}}}},
		},
		Source:     "ORDERS",
		Condition:  &BinaryExpr{OP: GT, LHS: &FieldRef{Name: "ORDERUNITS"}, RHS: &IntegerLiteral{Val: 60}},
		Dimensions: Dimensions{&FieldRef{Name: "ITEMID"}},
	}
	var refs []string
	WalkFunc(stmt, func(n Node) bool {
		if f, ok := n.(*FieldRef); ok {
			refs = append(refs, f.Name)
		}
		return true
	})
	assert.Equal(t, []string{"ITEMID", "ORDERUNITS", "ORDERUNITS", "ITEMID"}, refs)
}
