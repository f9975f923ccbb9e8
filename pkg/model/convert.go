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
	"strconv"
	"strings"
)

// FromGo converts a decoded go value into a Value of type t. Integral floats
// are accepted for BIGINT and integers are widened for DOUBLE.
func FromGo(v any, t Type) (Value, error) {
	if v == nil {
		return Null, nil
	}
	switch t.Kind {
	case KindBigint:
		switch n := v.(type) {
		case int:
			return Int(int64(n)), nil
		case int8:
			return Int(int64(n)), nil
		case int16:
			return Int(int64(n)), nil
		case int32:
			return Int(int64(n)), nil
		case int64:
			return Int(n), nil
		case uint8:
			return Int(int64(n)), nil
		case uint16:
			return Int(int64(n)), nil
		case uint32:
			return Int(int64(n)), nil
		case uint64:
			if n > math.MaxInt64 {
				return Null, fmt.Errorf("value %d overflows BIGINT", n)
			}
			return Int(int64(n)), nil
		case float32:
			return intFromFloat(float64(n))
		case float64:
			return intFromFloat(n)
		}
	case KindDouble:
		switch n := v.(type) {
		case float64:
			return Float(n), nil
		case float32:
			return Float(float64(n)), nil
		case int:
			return Float(float64(n)), nil
		case int8:
			return Float(float64(n)), nil
		case int16:
			return Float(float64(n)), nil
		case int32:
			return Float(float64(n)), nil
		case int64:
			return Float(float64(n)), nil
		case uint8:
			return Float(float64(n)), nil
		case uint16:
			return Float(float64(n)), nil
		case uint32:
			return Float(float64(n)), nil
		case uint64:
			return Float(float64(n)), nil
		}
	case KindString:
		switch s := v.(type) {
		case string:
			return Str(s), nil
		case []byte:
			return Str(string(s)), nil
		}
	case KindBoolean:
		if b, ok := v.(bool); ok {
			return Bool(b), nil
		}
	case KindArray:
		if arr, ok := v.([]any); ok {
			vs := make([]Value, len(arr))
			for i, e := range arr {
				ev, err := FromGo(e, *t.Elem)
				if err != nil {
					return Null, fmt.Errorf("array element %d: %w", i, err)
				}
				vs[i] = ev
			}
			return Value{kind: KindArray, arr: vs, elem: t.Elem}, nil
		}
	case KindMap:
		m := make(map[string]Value)
		switch mm := v.(type) {
		case map[string]any:
			for k, e := range mm {
				ev, err := FromGo(e, *t.Elem)
				if err != nil {
					return Null, fmt.Errorf("map entry %s: %w", k, err)
				}
				m[k] = ev
			}
			return Value{kind: KindMap, m: m, elem: t.Elem}, nil
		case map[any]any:
			for k, e := range mm {
				ks, ok := k.(string)
				if !ok {
					if kb, isBytes := k.([]byte); isBytes {
						ks = string(kb)
					} else {
						return Null, fmt.Errorf("map key %v is not a string", k)
					}
				}
				ev, err := FromGo(e, *t.Elem)
				if err != nil {
					return Null, fmt.Errorf("map entry %s: %w", ks, err)
				}
				m[ks] = ev
			}
			return Value{kind: KindMap, m: m, elem: t.Elem}, nil
		}
	}
	return Null, fmt.Errorf("cannot convert %[1]T(%[1]v) to %s", v, t)
}

func intFromFloat(f float64) (Value, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return Null, fmt.Errorf("value %v is not an integer", f)
	}
	return Int(int64(f)), nil
}

// ParseString parses the text form of a scalar value, used by the delimited codec.
func ParseString(s string, t Type) (Value, error) {
	switch t.Kind {
	case KindBigint:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Null, err
		}
		return Int(n), nil
	case KindDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Null, err
		}
		return Float(f), nil
	case KindString:
		return Str(s), nil
	case KindBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Null, err
		}
		return Bool(b), nil
	default:
		return Null, fmt.Errorf("type %s has no text form", t)
	}
}

// ToMap converts a row into a map of plain go values keyed by column name.
// Null columns are kept as nil entries.
func ToMap(r Row, s *Schema) map[string]any {
	m := make(map[string]any, len(s.Columns))
	for i, c := range s.Columns {
		m[c.Name] = r.Get(i).ToGo()
	}
	return m
}

// FromMap builds a row of schema s from decoded go values. Field names match
// columns case-insensitively; absent columns are null and extra fields are ignored.
func FromMap(m map[string]any, s *Schema) (Row, error) {
	upper := make(map[string]any, len(m))
	for k, v := range m {
		upper[strings.ToUpper(k)] = v
	}
	vs := make([]Value, len(s.Columns))
	for i, c := range s.Columns {
		v, err := FromGo(upper[strings.ToUpper(c.Name)], c.Type)
		if err != nil {
			return Row{}, fmt.Errorf("column %s: %w", c.Name, err)
		}
		vs[i] = v
	}
	return rowOf(vs), nil
}
