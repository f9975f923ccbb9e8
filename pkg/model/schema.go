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

type Column struct {
	Name string
	Type Type
}

// Schema is an ordered list of uniquely named columns. Key is the index of
// the key column or -1.
type Schema struct {
	Columns []Column
	Key     int
	index   map[string]int
}

func NewSchema(cols []Column, key string) (*Schema, error) {
	s := &Schema{
		Columns: make([]Column, len(cols)),
		Key:     -1,
		index:   make(map[string]int, len(cols)),
	}
	copy(s.Columns, cols)
	for i, c := range cols {
		n := strings.ToUpper(c.Name)
		if _, ok := s.index[n]; ok {
			return nil, fmt.Errorf("duplicate column %s", c.Name)
		}
		s.index[n] = i
	}
	if key != "" {
		i, ok := s.index[strings.ToUpper(key)]
		if !ok {
			return nil, fmt.Errorf("key column %s is not found", key)
		}
		s.Key = i
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error, for static schemas and tests.
func MustSchema(cols []Column, key string) *Schema {
	s, err := NewSchema(cols, key)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Len() int { return len(s.Columns) }

// IndexOf resolves a column by case-insensitive name.
func (s *Schema) IndexOf(name string) (int, bool) {
	i, ok := s.index[strings.ToUpper(name)]
	return i, ok
}

func (s *Schema) KeyColumn() (Column, bool) {
	if s.Key < 0 {
		return Column{}, false
	}
	return s.Columns[s.Key], true
}

// Conforms checks the arity and column types of a row.
func (s *Schema) Conforms(r Row) error {
	if r.Len() != len(s.Columns) {
		return fmt.Errorf("expect %d columns but got %d", len(s.Columns), r.Len())
	}
	for i, c := range s.Columns {
		if !r.Get(i).Conforms(c.Type) {
			return fmt.Errorf("column %s expects %s but got %s", c.Name, c.Type, r.Get(i).Type())
		}
	}
	return nil
}

func (s *Schema) Equal(o *Schema) bool {
	if s.Key != o.Key || len(s.Columns) != len(o.Columns) {
		return false
	}
	for i, c := range s.Columns {
		if c.Name != o.Columns[i].Name || !c.Type.Equal(o.Columns[i].Type) {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		parts[i] = fmt.Sprintf("%s %s", c.Name, c.Type)
		if i == s.Key {
			parts[i] += " KEY"
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
