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
	"math"
	"sort"
	"strconv"
	"strings"
)

// Value is one typed column value. The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	arr  []Value
	m    map[string]Value
	// elem of an array or map
	elem *Type
}

var Null = Value{}

func Int(v int64) Value {
	return Value{kind: KindBigint, i: v}
}

func Float(v float64) Value {
	return Value{kind: KindDouble, f: v}
}

func Str(v string) Value {
	return Value{kind: KindString, s: v}
}

func Bool(v bool) Value {
	r := Value{kind: KindBoolean}
	if v {
		r.i = 1
	}
	return r
}

// Array builds an array value. Elements must be null or of the elem type.
func Array(elem Type, vs ...Value) Value {
	arr := make([]Value, len(vs))
	copy(arr, vs)
	return Value{kind: KindArray, arr: arr, elem: &elem}
}

// Map builds a map value. Entries must be null or of the elem type.
func Map(elem Type, m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMap, m: cp, elem: &elem}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Type returns the runtime type of the value. Null has NullType.
func (v Value) Type() Type {
	switch v.kind {
	case KindArray:
		return ArrayOf(*v.elem)
	case KindMap:
		return MapOf(*v.elem)
	default:
		return Type{Kind: v.kind}
	}
}

func (v Value) Int() int64 { return v.i }

func (v Value) Float() float64 { return v.f }

func (v Value) Str() string { return v.s }

func (v Value) Bool() bool { return v.i != 0 }

// AsFloat converts a numeric value to float64.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindBigint:
		return float64(v.i), true
	case KindDouble:
		return v.f, true
	default:
		return 0, false
	}
}

func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindMap:
		return len(v.m)
	case KindString:
		return len(v.s)
	default:
		return 0
	}
}

// Index returns the i-th element of an array or null when out of bounds.
func (v Value) Index(i int64) Value {
	if v.kind != KindArray || i < 0 || i >= int64(len(v.arr)) {
		return Null
	}
	return v.arr[i]
}

// Lookup returns the entry of a map or null when absent.
func (v Value) Lookup(k string) Value {
	if v.kind != KindMap {
		return Null
	}
	return v.m[k]
}

// Elems returns a copy of the array elements.
func (v Value) Elems() []Value {
	if v.kind != KindArray {
		return nil
	}
	r := make([]Value, len(v.arr))
	copy(r, v.arr)
	return r
}

// Keys returns the sorted keys of a map value.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal is content equality. Maps are compared regardless of insertion order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBigint, KindBoolean:
		return v.i == o.i
	case KindDouble:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindString:
		return v.s == o.s
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, a := range v.m {
			b, ok := o.m[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// Conforms reports whether the value can be stored in a column of type t.
func (v Value) Conforms(t Type) bool {
	if v.kind == KindNull {
		return true
	}
	if v.kind != t.Kind {
		return false
	}
	switch v.kind {
	case KindArray:
		for _, e := range v.arr {
			if !e.Conforms(*t.Elem) {
				return false
			}
		}
	case KindMap:
		for _, e := range v.m {
			if !e.Conforms(*t.Elem) {
				return false
			}
		}
	}
	return true
}

// ToGo converts the value into plain go values, used by the codecs.
func (v Value) ToGo() any {
	switch v.kind {
	case KindBigint:
		return v.i
	case KindDouble:
		return v.f
	case KindString:
		return v.s
	case KindBoolean:
		return v.Bool()
	case KindArray:
		r := make([]any, len(v.arr))
		for i, e := range v.arr {
			r[i] = e.ToGo()
		}
		return r
	case KindMap:
		r := make(map[string]any, len(v.m))
		for k, e := range v.m {
			r[k] = e.ToGo()
		}
		return r
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBigint:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindString:
		return v.s
	case KindBoolean:
		return strconv.FormatBool(v.Bool())
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := v.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%s", k, v.m[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return ""
}
