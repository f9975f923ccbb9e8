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

import "strings"

// Row is an immutable tuple of values aligned to a schema.
type Row struct {
	values []Value
}

func NewRow(vs ...Value) Row {
	values := make([]Value, len(vs))
	copy(values, vs)
	return Row{values: values}
}

// rowOf takes ownership of vs without copying.
func rowOf(vs []Value) Row {
	return Row{values: vs}
}

// RowBuilder fills a fresh row positionally.
type RowBuilder struct {
	values []Value
}

func NewRowBuilder(n int) *RowBuilder {
	return &RowBuilder{values: make([]Value, n)}
}

func (b *RowBuilder) Set(i int, v Value) *RowBuilder {
	b.values[i] = v
	return b
}

// Build returns the row. The builder must not be used afterwards.
func (b *RowBuilder) Build() Row {
	r := rowOf(b.values)
	b.values = nil
	return r
}

func (r Row) Len() int { return len(r.values) }

func (r Row) Get(i int) Value { return r.values[i] }

func (r Row) Values() []Value {
	vs := make([]Value, len(r.values))
	copy(vs, r.values)
	return vs
}

func (r Row) Equal(o Row) bool {
	if len(r.values) != len(o.values) {
		return false
	}
	for i := range r.values {
		if !r.values[i].Equal(o.values[i]) {
			return false
		}
	}
	return true
}

func (r Row) String() string {
	parts := make([]string, len(r.values))
	for i, v := range r.values {
		if v.Kind() == KindString {
			parts[i] = "'" + v.Str() + "'"
		} else {
			parts[i] = v.String()
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
