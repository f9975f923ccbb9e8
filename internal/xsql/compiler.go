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
	"fmt"

	"github.com/lf-edge/kql/internal/binder/function"
	"github.com/lf-edge/kql/pkg/ast"
	"github.com/lf-edge/kql/pkg/errorx"
	"github.com/lf-edge/kql/pkg/model"
)

// hookFunc intercepts a sub expression before the default binding.
// When handled is false the default binding applies.
type hookFunc func(e ast.Expr) (ev Evaluator, handled bool, err error)

type compiler struct {
	schema *model.Schema
	hook   hookFunc
	// clause names the clause being bound in error messages
	clause string
}

// Compile binds a scalar expression against the schema. Aggregate functions
// are rejected.
func Compile(expr ast.Expr, schema *model.Schema) (Evaluator, error) {
	c := &compiler{schema: schema, clause: "expression"}
	return c.compile(expr)
}

// CompilePredicate binds a WHERE or HAVING like condition which must be BOOLEAN.
func CompilePredicate(expr ast.Expr, schema *model.Schema, clause string) (Evaluator, error) {
	c := &compiler{schema: schema, clause: clause}
	ev, err := c.compile(expr)
	if err != nil {
		return nil, err
	}
	if err := checkBoolean(ev, clause); err != nil {
		return nil, err
	}
	return ev, nil
}

func checkBoolean(ev Evaluator, clause string) error {
	if k := ev.Type().Kind; k != model.KindBoolean && k != model.KindNull {
		return errorx.NewTypeMismatch("%s condition %s must be BOOLEAN but got %s", clause, ev, ev.Type())
	}
	return nil
}

func (c *compiler) compile(expr ast.Expr) (Evaluator, error) {
	if c.hook != nil {
		if ev, handled, err := c.hook(expr); err != nil || handled {
			return ev, err
		}
	}
	switch e := expr.(type) {
	case *ast.ParenExpr:
		return c.compile(e.Expr)
	case *ast.IntegerLiteral:
		return &literalEval{val: model.Int(e.Val), expr: e}, nil
	case *ast.NumberLiteral:
		return &literalEval{val: model.Float(e.Val), expr: e}, nil
	case *ast.StringLiteral:
		return &literalEval{val: model.Str(e.Val), expr: e}, nil
	case *ast.BooleanLiteral:
		return &literalEval{val: model.Bool(e.Val), expr: e}, nil
	case *ast.NullLiteral:
		return &literalEval{val: model.Null, expr: e}, nil
	case *ast.FieldRef:
		i, ok := c.schema.IndexOf(e.Name)
		if !ok {
			return nil, &errorx.UnknownColumnError{Name: e.Name}
		}
		return &columnEval{index: i, typ: c.schema.Columns[i].Type, expr: e}, nil
	case *ast.Wildcard:
		return nil, errorx.NewInvalidStatement("* is not allowed in %s", c.clause)
	case *ast.UnaryExpr:
		return c.compileUnary(e)
	case *ast.BinaryExpr:
		return c.compileBinary(e)
	case *ast.IsNullExpr:
		inner, err := c.compile(e.Expr)
		if err != nil {
			return nil, err
		}
		return &isNullEval{inner: inner, not: e.Not, expr: e}, nil
	case *ast.IndexExpr:
		return c.compileIndex(e)
	case *ast.Call:
		return c.compileCall(e)
	default:
		return nil, errorx.NewInvalidStatement("unsupported expression %s", expr)
	}
}

func (c *compiler) compileUnary(e *ast.UnaryExpr) (Evaluator, error) {
	inner, err := c.compile(e.Expr)
	if err != nil {
		return nil, err
	}
	switch e.OP {
	case ast.NOT:
		if !isKindOrNull(inner.Type(), model.KindBoolean) {
			return nil, errorx.NewTypeMismatch("NOT expects BOOLEAN but got %s in %s", inner.Type(), e)
		}
		return &notEval{inner: inner, expr: e}, nil
	case ast.SUB:
		if !inner.Type().IsNumeric() && inner.Type().Kind != model.KindNull {
			return nil, errorx.NewTypeMismatch("unary minus expects a number but got %s in %s", inner.Type(), e)
		}
		ev := &negEval{inner: inner, expr: e}
		// fold negative literals
		if _, ok := inner.(*literalEval); ok {
			v, _ := ev.Eval(model.Row{})
			return &literalEval{val: v, expr: e}, nil
		}
		return ev, nil
	default:
		return nil, errorx.NewInvalidStatement("unsupported unary operator %s", e.OP)
	}
}

func (c *compiler) compileBinary(e *ast.BinaryExpr) (Evaluator, error) {
	lhs, err := c.compile(e.LHS)
	if err != nil {
		return nil, err
	}
	if e.OP == ast.LIKE || e.OP == ast.NOTLIKE {
		return c.compileLike(e, lhs)
	}
	rhs, err := c.compile(e.RHS)
	if err != nil {
		return nil, err
	}
	lt, rt := lhs.Type(), rhs.Type()
	switch e.OP {
	case ast.ADD, ast.SUB, ast.MUL, ast.DIV, ast.MOD:
		if !isNumericOrNull(lt) || !isNumericOrNull(rt) {
			return nil, errorx.NewTypeMismatch("operator %s expects numbers but got %s and %s in %s", e.OP, lt, rt, e)
		}
		typ := model.DoubleType
		if lt.Kind != model.KindDouble && rt.Kind != model.KindDouble && (lt.Kind == model.KindBigint || rt.Kind == model.KindBigint) {
			typ = model.BigintType
		}
		return &arithEval{op: e.OP, lhs: lhs, rhs: rhs, typ: typ, expr: e}, nil
	case ast.EQ, ast.NEQ, ast.LT, ast.LTE, ast.GT, ast.GTE:
		if err := checkComparable(e.OP, lt, rt); err != nil {
			return nil, errorx.NewTypeMismatch("%v in %s", err, e)
		}
		return &compareEval{op: e.OP, lhs: lhs, rhs: rhs, expr: e}, nil
	case ast.AND, ast.OR:
		if !isKindOrNull(lt, model.KindBoolean) || !isKindOrNull(rt, model.KindBoolean) {
			return nil, errorx.NewTypeMismatch("operator %s expects BOOLEAN but got %s and %s in %s", e.OP, lt, rt, e)
		}
		return &logicEval{op: e.OP, lhs: lhs, rhs: rhs, expr: e}, nil
	default:
		return nil, errorx.NewInvalidStatement("unsupported operator %s", e.OP)
	}
}

func checkComparable(op ast.Token, lt, rt model.Type) error {
	if lt.Kind == model.KindNull || rt.Kind == model.KindNull {
		return nil
	}
	switch {
	case lt.IsNumeric() && rt.IsNumeric():
		return nil
	case lt.Kind == model.KindString && rt.Kind == model.KindString:
		return nil
	case lt.Kind == model.KindBoolean && rt.Kind == model.KindBoolean:
		if op == ast.EQ || op == ast.NEQ {
			return nil
		}
		return fmt.Errorf("operator %s is not defined for BOOLEAN", op)
	}
	return fmt.Errorf("cannot compare %s with %s", lt, rt)
}

func (c *compiler) compileLike(e *ast.BinaryExpr, lhs Evaluator) (Evaluator, error) {
	if !isKindOrNull(lhs.Type(), model.KindString) {
		return nil, errorx.NewTypeMismatch("LIKE expects STRING but got %s in %s", lhs.Type(), e)
	}
	lit, ok := ast.StripParen(e.RHS).(*ast.StringLiteral)
	if !ok {
		return nil, errorx.NewTypeMismatch("LIKE pattern must be a string literal in %s", e)
	}
	re, err := likePattern(lit.Val)
	if err != nil {
		return nil, errorx.NewInvalidStatement("invalid LIKE pattern %s: %v", lit, err)
	}
	return &likeEval{inner: lhs, re: re, not: e.OP == ast.NOTLIKE, expr: e}, nil
}

func (c *compiler) compileIndex(e *ast.IndexExpr) (Evaluator, error) {
	inner, err := c.compile(e.Expr)
	if err != nil {
		return nil, err
	}
	index, err := c.compile(e.Index)
	if err != nil {
		return nil, err
	}
	it := inner.Type()
	switch it.Kind {
	case model.KindArray:
		if !isKindOrNull(index.Type(), model.KindBigint) {
			return nil, errorx.NewTypeMismatch("array index must be BIGINT but got %s in %s", index.Type(), e)
		}
	case model.KindMap:
		if !isKindOrNull(index.Type(), model.KindString) {
			return nil, errorx.NewTypeMismatch("map key must be STRING but got %s in %s", index.Type(), e)
		}
	default:
		return nil, errorx.NewTypeMismatch("%s is not an ARRAY or MAP but %s", e.Expr, it)
	}
	return &indexEval{inner: inner, index: index, typ: *it.Elem, expr: e}, nil
}

func (c *compiler) compileCall(e *ast.Call) (Evaluator, error) {
	if function.IsAggFunc(e.Name) {
		return nil, errorx.NewInvalidStatement("aggregate function %s is not allowed in %s", e.Name, c.clause)
	}
	args := make([]Evaluator, len(e.Args))
	types := make([]model.Type, len(e.Args))
	for i, a := range e.Args {
		ev, err := c.compile(a)
		if err != nil {
			return nil, err
		}
		args[i] = ev
		types[i] = ev.Type()
	}
	fn, err := function.BindScalar(e.Name, types)
	if err != nil {
		return nil, err
	}
	return &callEval{fn: fn, args: args, expr: e}, nil
}

func isKindOrNull(t model.Type, k model.Kind) bool {
	return t.Kind == k || t.Kind == model.KindNull
}

func isNumericOrNull(t model.Type) bool {
	return t.IsNumeric() || t.Kind == model.KindNull
}
