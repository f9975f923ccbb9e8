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
	"math"
	"regexp"
	"strings"

	"github.com/lf-edge/kql/internal/binder/function"
	"github.com/lf-edge/kql/pkg/ast"
	"github.com/lf-edge/kql/pkg/errorx"
	"github.com/lf-edge/kql/pkg/model"
)

// Evaluator is a bound expression. Eval is total for rows conforming to the
// schema it was compiled against.
type Evaluator interface {
	Eval(row model.Row) (model.Value, error)
	Type() model.Type
	String() string
}

type columnEval struct {
	index int
	typ   model.Type
	expr  ast.Expr
}

func (c *columnEval) Eval(row model.Row) (model.Value, error) {
	return row.Get(c.index), nil
}

func (c *columnEval) Type() model.Type { return c.typ }

func (c *columnEval) String() string { return c.expr.String() }

type literalEval struct {
	val  model.Value
	expr ast.Expr
}

func (l *literalEval) Eval(_ model.Row) (model.Value, error) {
	return l.val, nil
}

func (l *literalEval) Type() model.Type { return l.val.Type() }

func (l *literalEval) String() string { return l.expr.String() }

type arithEval struct {
	op       ast.Token
	lhs, rhs Evaluator
	typ      model.Type
	expr     ast.Expr
}

func (a *arithEval) Eval(row model.Row) (model.Value, error) {
	l, err := a.lhs.Eval(row)
	if err != nil {
		return model.Null, err
	}
	r, err := a.rhs.Eval(row)
	if err != nil {
		return model.Null, err
	}
	if l.IsNull() || r.IsNull() {
		return model.Null, nil
	}
	if a.typ.Kind == model.KindBigint {
		return arithInt(a.op, l.Int(), r.Int()), nil
	}
	lf, _ := l.AsFloat()
	rf, _ := r.AsFloat()
	return arithFloat(a.op, lf, rf), nil
}

func arithInt(op ast.Token, l, r int64) model.Value {
	switch op {
	case ast.ADD:
		return model.Int(l + r)
	case ast.SUB:
		return model.Int(l - r)
	case ast.MUL:
		return model.Int(l * r)
	case ast.DIV:
		if r == 0 {
			return model.Null
		}
		return model.Int(l / r)
	case ast.MOD:
		if r == 0 {
			return model.Null
		}
		return model.Int(l % r)
	}
	return model.Null
}

func arithFloat(op ast.Token, l, r float64) model.Value {
	switch op {
	case ast.ADD:
		return model.Float(l + r)
	case ast.SUB:
		return model.Float(l - r)
	case ast.MUL:
		return model.Float(l * r)
	case ast.DIV:
		if r == 0 {
			return model.Null
		}
		return model.Float(l / r)
	case ast.MOD:
		if r == 0 {
			return model.Null
		}
		return model.Float(math.Mod(l, r))
	}
	return model.Null
}

func (a *arithEval) Type() model.Type { return a.typ }

func (a *arithEval) String() string { return a.expr.String() }

type negEval struct {
	inner Evaluator
	expr  ast.Expr
}

func (n *negEval) Eval(row model.Row) (model.Value, error) {
	v, err := n.inner.Eval(row)
	if err != nil || v.IsNull() {
		return model.Null, err
	}
	if v.Kind() == model.KindBigint {
		return model.Int(-v.Int()), nil
	}
	return model.Float(-v.Float()), nil
}

func (n *negEval) Type() model.Type { return n.inner.Type() }

func (n *negEval) String() string { return n.expr.String() }

type compareEval struct {
	op       ast.Token
	lhs, rhs Evaluator
	expr     ast.Expr
}

func (c *compareEval) Eval(row model.Row) (model.Value, error) {
	l, err := c.lhs.Eval(row)
	if err != nil {
		return model.Null, err
	}
	r, err := c.rhs.Eval(row)
	if err != nil {
		return model.Null, err
	}
	if l.IsNull() || r.IsNull() {
		return model.Null, nil
	}
	var cmp int
	switch {
	case l.Kind() == model.KindBigint && r.Kind() == model.KindBigint:
		cmp = compareOrdered(l.Int(), r.Int())
	case l.Kind() == model.KindString:
		cmp = strings.Compare(l.Str(), r.Str())
	case l.Kind() == model.KindBoolean:
		if l.Bool() == r.Bool() {
			cmp = 0
		} else {
			cmp = 1
		}
	default:
		lf, _ := l.AsFloat()
		rf, _ := r.AsFloat()
		cmp = compareOrdered(lf, rf)
	}
	switch c.op {
	case ast.EQ:
		return model.Bool(cmp == 0), nil
	case ast.NEQ:
		return model.Bool(cmp != 0), nil
	case ast.LT:
		return model.Bool(cmp < 0), nil
	case ast.LTE:
		return model.Bool(cmp <= 0), nil
	case ast.GT:
		return model.Bool(cmp > 0), nil
	case ast.GTE:
		return model.Bool(cmp >= 0), nil
	}
	return model.Null, nil
}

func compareOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (c *compareEval) Type() model.Type { return model.BooleanType }

func (c *compareEval) String() string { return c.expr.String() }

// logicEval implements AND/OR with three-valued logic.
type logicEval struct {
	op       ast.Token
	lhs, rhs Evaluator
	expr     ast.Expr
}

func (le *logicEval) Eval(row model.Row) (model.Value, error) {
	l, err := le.lhs.Eval(row)
	if err != nil {
		return model.Null, err
	}
	// short circuit
	if !l.IsNull() {
		if le.op == ast.AND && !l.Bool() {
			return model.Bool(false), nil
		}
		if le.op == ast.OR && l.Bool() {
			return model.Bool(true), nil
		}
	}
	r, err := le.rhs.Eval(row)
	if err != nil {
		return model.Null, err
	}
	if !r.IsNull() {
		if le.op == ast.AND && !r.Bool() {
			return model.Bool(false), nil
		}
		if le.op == ast.OR && r.Bool() {
			return model.Bool(true), nil
		}
	}
	if l.IsNull() || r.IsNull() {
		return model.Null, nil
	}
	return model.Bool(le.op == ast.AND), nil
}

func (le *logicEval) Type() model.Type { return model.BooleanType }

func (le *logicEval) String() string { return le.expr.String() }

type notEval struct {
	inner Evaluator
	expr  ast.Expr
}

func (n *notEval) Eval(row model.Row) (model.Value, error) {
	v, err := n.inner.Eval(row)
	if err != nil || v.IsNull() {
		return model.Null, err
	}
	return model.Bool(!v.Bool()), nil
}

func (n *notEval) Type() model.Type { return model.BooleanType }

func (n *notEval) String() string { return n.expr.String() }

type likeEval struct {
	inner Evaluator
	re    *regexp.Regexp
	not   bool
	expr  ast.Expr
}

// likePattern translates a LIKE pattern to an anchored regexp.
// % matches any run of characters and _ matches exactly one.
func likePattern(p string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?s)^")
	for _, c := range p {
		switch c {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

func (l *likeEval) Eval(row model.Row) (model.Value, error) {
	v, err := l.inner.Eval(row)
	if err != nil || v.IsNull() {
		return model.Null, err
	}
	return model.Bool(l.re.MatchString(v.Str()) != l.not), nil
}

func (l *likeEval) Type() model.Type { return model.BooleanType }

func (l *likeEval) String() string { return l.expr.String() }

type isNullEval struct {
	inner Evaluator
	not   bool
	expr  ast.Expr
}

func (n *isNullEval) Eval(row model.Row) (model.Value, error) {
	v, err := n.inner.Eval(row)
	if err != nil {
		return model.Null, err
	}
	return model.Bool(v.IsNull() != n.not), nil
}

func (n *isNullEval) Type() model.Type { return model.BooleanType }

func (n *isNullEval) String() string { return n.expr.String() }

// indexEval is arr[i] for arrays and m['k'] for maps. Out of range and
// missing keys give null.
type indexEval struct {
	inner, index Evaluator
	typ          model.Type
	expr         ast.Expr
}

func (ie *indexEval) Eval(row model.Row) (model.Value, error) {
	v, err := ie.inner.Eval(row)
	if err != nil || v.IsNull() {
		return model.Null, err
	}
	i, err := ie.index.Eval(row)
	if err != nil || i.IsNull() {
		return model.Null, err
	}
	if v.Kind() == model.KindArray {
		return v.Index(i.Int()), nil
	}
	return v.Lookup(i.Str()), nil
}

func (ie *indexEval) Type() model.Type { return ie.typ }

func (ie *indexEval) String() string { return ie.expr.String() }

type callEval struct {
	fn   *function.Scalar
	args []Evaluator
	expr ast.Expr
}

func (c *callEval) Eval(row model.Row) (model.Value, error) {
	args := make([]model.Value, len(c.args))
	for i, a := range c.args {
		v, err := a.Eval(row)
		if err != nil {
			return model.Null, err
		}
		args[i] = v
	}
	r, err := c.fn.Exec(args)
	if err != nil {
		return model.Null, &errorx.RuntimeEvaluationError{Expr: c.String(), Err: err}
	}
	return r, nil
}

func (c *callEval) Type() model.Type { return c.fn.ResultType }

func (c *callEval) String() string { return c.expr.String() }

// slotEval reads a position of a post-aggregation row.
type slotEval struct {
	index int
	typ   model.Type
	expr  ast.Expr
}

func (s *slotEval) Eval(row model.Row) (model.Value, error) {
	return row.Get(s.index), nil
}

func (s *slotEval) Type() model.Type { return s.typ }

func (s *slotEval) String() string { return s.expr.String() }
