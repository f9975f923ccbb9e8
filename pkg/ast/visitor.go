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
	"reflect"
)

type Visitor interface {
	Visit(Node) bool
}

func Walk(v Visitor, node Node) {
	if node == nil || (reflect.ValueOf(node).Kind() == reflect.Ptr && reflect.ValueOf(node).IsNil()) {
		return
	}

	if !v.Visit(node) {
		return
	}

	switch n := node.(type) {
	case *CreateStreamAsSelect:
		Walk(v, n.Select)

	case *SelectStatement:
		Walk(v, n.Fields)
		Walk(v, n.Condition)
		Walk(v, n.Dimensions)
		Walk(v, n.Having)

	case Fields:
		for i := range n {
			Walk(v, &n[i])
		}

	case *Field:
		Walk(v, n.Expr)

	case Dimensions:
		for _, d := range n {
			Walk(v, d)
		}

	case *BinaryExpr:
		Walk(v, n.LHS)
		Walk(v, n.RHS)

	case *UnaryExpr:
		Walk(v, n.Expr)

	case *Call:
		for _, expr := range n.Args {
			Walk(v, expr)
		}

	case *ParenExpr:
		Walk(v, n.Expr)

	case *IndexExpr:
		Walk(v, n.Expr)
		Walk(v, n.Index)

	case *IsNullExpr:
		Walk(v, n.Expr)
	}
}

func WalkFunc(node Node, fn func(Node) bool) {
	Walk(walkFuncVisitor(fn), node)
}

type walkFuncVisitor func(Node) bool

func (fn walkFuncVisitor) Visit(n Node) bool { return fn(n) }
