// Copyright 2019-2024 EMQ Technologies Co., Ltd.
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
	"strconv"
	"strings"
)

type Node interface {
	node()
}

type Expr interface {
	Node
	expr()
	String() string
}

type Literal interface {
	Expr
	literal()
}

type ParenExpr struct {
	Expr Expr
}

type IntegerLiteral struct {
	Val int64
}

type NumberLiteral struct {
	Val float64
}

type StringLiteral struct {
	Val string
}

type BooleanLiteral struct {
	Val bool
}

type NullLiteral struct{}

// Wildcard is the * of SELECT * and COUNT(*).
type Wildcard struct {
	Token Token
}

// FieldRef refers to a column of the input by name.
type FieldRef struct {
	Name string
}

// UnaryExpr is NOT expr or -expr.
type UnaryExpr struct {
	OP   Token
	Expr Expr
}

type BinaryExpr struct {
	OP  Token
	LHS Expr
	RHS Expr
}

// IndexExpr is arr[i] or map['k']; the binder tells them apart by the operand type.
type IndexExpr struct {
	Expr  Expr
	Index Expr
}

// IsNullExpr is expr IS [NOT] NULL.
type IsNullExpr struct {
	Expr Expr
	Not  bool
}

type Call struct {
	Name string
	Args []Expr
}

func (pe *ParenExpr) expr() {}
func (pe *ParenExpr) node() {}

func (il *IntegerLiteral) expr()    {}
func (il *IntegerLiteral) literal() {}
func (il *IntegerLiteral) node()    {}

func (nl *NumberLiteral) expr()    {}
func (nl *NumberLiteral) literal() {}
func (nl *NumberLiteral) node()    {}

func (sl *StringLiteral) expr()    {}
func (sl *StringLiteral) literal() {}
func (sl *StringLiteral) node()    {}

func (bl *BooleanLiteral) expr()    {}
func (bl *BooleanLiteral) literal() {}
func (bl *BooleanLiteral) node()    {}

func (nl *NullLiteral) expr()    {}
func (nl *NullLiteral) literal() {}
func (nl *NullLiteral) node()    {}

func (w *Wildcard) expr() {}
func (w *Wildcard) node() {}

func (fr *FieldRef) expr() {}
func (fr *FieldRef) node() {}

func (ue *UnaryExpr) expr() {}
func (ue *UnaryExpr) node() {}

func (be *BinaryExpr) expr() {}
func (be *BinaryExpr) node() {}

func (ie *IndexExpr) expr() {}
func (ie *IndexExpr) node() {}

func (ie *IsNullExpr) expr() {}
func (ie *IsNullExpr) node() {}

func (c *Call) expr() {}
func (c *Call) node() {}

// String prints the canonical text of an expression. Identifiers are upper
// cased so two spellings of the same expression print the same.

// compound expressions already print their own parentheses
func (pe *ParenExpr) String() string { return pe.Expr.String() }

func (il *IntegerLiteral) String() string { return strconv.FormatInt(il.Val, 10) }

func (nl *NumberLiteral) String() string { return strconv.FormatFloat(nl.Val, 'f', -1, 64) }

func (sl *StringLiteral) String() string {
	return "'" + strings.ReplaceAll(sl.Val, "'", "''") + "'"
}

func (bl *BooleanLiteral) String() string {
	if bl.Val {
		return "TRUE"
	}
	return "FALSE"
}

func (nl *NullLiteral) String() string { return "NULL" }

func (w *Wildcard) String() string { return "*" }

func (fr *FieldRef) String() string { return strings.ToUpper(fr.Name) }

func (ue *UnaryExpr) String() string {
	if ue.OP == NOT {
		return "(NOT " + ue.Expr.String() + ")"
	}
	return "(" + ue.OP.String() + ue.Expr.String() + ")"
}

func (be *BinaryExpr) String() string {
	return "(" + be.LHS.String() + " " + be.OP.String() + " " + be.RHS.String() + ")"
}

func (ie *IndexExpr) String() string {
	return ie.Expr.String() + "[" + ie.Index.String() + "]"
}

func (ie *IsNullExpr) String() string {
	if ie.Not {
		return "(" + ie.Expr.String() + " IS NOT NULL)"
	}
	return "(" + ie.Expr.String() + " IS NULL)"
}

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return strings.ToUpper(c.Name) + "(" + strings.Join(args, ", ") + ")"
}

// StripParen removes the redundant parentheses around an expression.
func StripParen(e Expr) Expr {
	for {
		p, ok := e.(*ParenExpr)
		if !ok {
			return e
		}
		e = p.Expr
	}
}

// Equal reports whether two expressions are structurally equal, ignoring
// parentheses and identifier case.
func Equal(a, b Expr) bool {
	return canonical(a) == canonical(b)
}

func canonical(e Expr) string {
	var b strings.Builder
	writeCanonical(&b, e)
	return b.String()
}

func writeCanonical(b *strings.Builder, e Expr) {
	switch n := StripParen(e).(type) {
	case *UnaryExpr:
		b.WriteString(n.OP.String())
		b.WriteByte('(')
		writeCanonical(b, n.Expr)
		b.WriteByte(')')
	case *BinaryExpr:
		b.WriteByte('(')
		writeCanonical(b, n.LHS)
		b.WriteString(" " + n.OP.String() + " ")
		writeCanonical(b, n.RHS)
		b.WriteByte(')')
	case *IndexExpr:
		writeCanonical(b, n.Expr)
		b.WriteByte('[')
		writeCanonical(b, n.Index)
		b.WriteByte(']')
	case *IsNullExpr:
		writeCanonical(b, n.Expr)
		if n.Not {
			b.WriteString(" IS NOT NULL")
		} else {
			b.WriteString(" IS NULL")
		}
	case *Call:
		b.WriteString(strings.ToUpper(n.Name))
		b.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeCanonical(b, a)
		}
		b.WriteByte(')')
	default:
		b.WriteString(n.String())
	}
}
