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

package state

import (
	"sort"
	"strings"

	"github.com/lf-edge/kql/internal/binder/function"
	"github.com/lf-edge/kql/pkg/model"
)

// Accumulator holds the running aggregates of one windowed key.
type Accumulator struct {
	Group []model.Value
	Aggs  []function.Accumulator
}

// Add folds the aggregate arguments of one row, one per aggregate.
func (a *Accumulator) Add(args []model.Value) {
	for i, acc := range a.Aggs {
		acc.Add(args[i])
	}
}

// Row is the post aggregation row: the group values followed by the aggregate results.
func (a *Accumulator) Row() model.Row {
	b := model.NewRowBuilder(len(a.Group) + len(a.Aggs))
	for i, v := range a.Group {
		b.Set(i, v)
	}
	for i, acc := range a.Aggs {
		b.Set(len(a.Group)+i, acc.Result())
	}
	return b.Build()
}

// WindowStore is the aggregation state of one query. It is owned by a single
// goroutine and is not safe for concurrent use.
type WindowStore struct {
	windows map[WindowedKey]*Accumulator
	newAggs func() []function.Accumulator
}

func NewWindowStore(newAggs func() []function.Accumulator) *WindowStore {
	return &WindowStore{
		windows: make(map[WindowedKey]*Accumulator),
		newAggs: newAggs,
	}
}

func (s *WindowStore) Get(k WindowedKey) (*Accumulator, bool) {
	acc, ok := s.windows[k]
	return acc, ok
}

// GetOrCreate returns the accumulator of k, creating an empty one for the group.
func (s *WindowStore) GetOrCreate(k WindowedKey, group []model.Value) *Accumulator {
	if acc, ok := s.windows[k]; ok {
		return acc
	}
	g := make([]model.Value, len(group))
	copy(g, group)
	acc := &Accumulator{Group: g, Aggs: s.newAggs()}
	s.windows[k] = acc
	return acc
}

// Expire removes and returns the keys matching isExpired, ordered by window
// end then key.
func (s *WindowStore) Expire(isExpired func(WindowedKey) bool) []WindowedKey {
	var r []WindowedKey
	for k := range s.windows {
		if isExpired(k) {
			r = append(r, k)
			delete(s.windows, k)
		}
	}
	sort.Slice(r, func(i, j int) bool {
		if r[i].End != r[j].End {
			return r[i].End < r[j].End
		}
		return r[i].Key < r[j].Key
	})
	return r
}

func (s *WindowStore) Len() int {
	return len(s.windows)
}

func (s *WindowStore) Clear() {
	s.windows = make(map[WindowedKey]*Accumulator)
}

const groupKeySeparator = "|+|"

// GroupKey is the text form of the group by values used as the record key.
func GroupKey(vals []model.Value) string {
	if len(vals) == 1 {
		return vals[0].String()
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return strings.Join(parts, groupKeySeparator)
}
