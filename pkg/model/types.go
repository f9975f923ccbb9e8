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

package model

import (
	"fmt"
	"strings"
)

type Kind int

const (
	KindNull Kind = iota
	KindBigint
	KindDouble
	KindString
	KindBoolean
	KindArray
	KindMap
)

var kindNames = map[Kind]string{
	KindNull:    "NULL",
	KindBigint:  "BIGINT",
	KindDouble:  "DOUBLE",
	KindString:  "STRING",
	KindBoolean: "BOOLEAN",
	KindArray:   "ARRAY",
	KindMap:     "MAP",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("KIND(%d)", int(k))
}

// Type is a column type. Elem is only set for ARRAY and MAP; map keys are always STRING.
type Type struct {
	Kind Kind
	Elem *Type
}

var (
	NullType    = Type{Kind: KindNull}
	BigintType  = Type{Kind: KindBigint}
	DoubleType  = Type{Kind: KindDouble}
	StringType  = Type{Kind: KindString}
	BooleanType = Type{Kind: KindBoolean}
)

func ArrayOf(elem Type) Type {
	return Type{Kind: KindArray, Elem: &elem}
}

func MapOf(elem Type) Type {
	return Type{Kind: KindMap, Elem: &elem}
}

func (t Type) IsNumeric() bool {
	return t.Kind == KindBigint || t.Kind == KindDouble
}

func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindArray, KindMap:
		if t.Elem == nil || o.Elem == nil {
			return t.Elem == o.Elem
		}
		return t.Elem.Equal(*o.Elem)
	default:
		return true
	}
}

func (t Type) String() string {
	switch t.Kind {
	case KindArray:
		return fmt.Sprintf("ARRAY<%s>", t.Elem)
	case KindMap:
		return fmt.Sprintf("MAP<STRING,%s>", t.Elem)
	default:
		return t.Kind.String()
	}
}

// ParseType parses a declared column type such as BIGINT, ARRAY<DOUBLE> or MAP<VARCHAR, DOUBLE>.
func ParseType(s string) (Type, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	switch u {
	case "BIGINT", "INT", "INTEGER", "LONG":
		return BigintType, nil
	case "DOUBLE", "FLOAT", "DECIMAL":
		return DoubleType, nil
	case "STRING", "VARCHAR":
		return StringType, nil
	case "BOOLEAN", "BOOL":
		return BooleanType, nil
	}
	if strings.HasPrefix(u, "ARRAY<") && strings.HasSuffix(u, ">") {
		elem, err := ParseType(u[len("ARRAY<") : len(u)-1])
		if err != nil {
			return NullType, err
		}
		return ArrayOf(elem), nil
	}
	if strings.HasPrefix(u, "MAP<") && strings.HasSuffix(u, ">") {
		inner := u[len("MAP<") : len(u)-1]
		i := strings.Index(inner, ",")
		if i < 0 {
			return NullType, fmt.Errorf("invalid map type %s, expect MAP<STRING, type>", s)
		}
		kt, err := ParseType(inner[:i])
		if err != nil {
			return NullType, err
		}
		if kt.Kind != KindString {
			return NullType, fmt.Errorf("invalid map type %s, key must be STRING", s)
		}
		elem, err := ParseType(inner[i+1:])
		if err != nil {
			return NullType, err
		}
		return MapOf(elem), nil
	}
	return NullType, fmt.Errorf("unknown type %s", s)
}
