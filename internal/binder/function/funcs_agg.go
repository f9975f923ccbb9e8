// Copyright 2021-2024 EMQ Technologies Co., Ltd.
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

package function

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/lf-edge/kql/pkg/model"
)

func registerAggFunc() {
	builtins["count"] = builtinFunc{
		fType: FuncTypeAgg,
		val: func(args []model.Type) (model.Type, error) {
			return model.BigintType, ValidateLen(1, len(args))
		},
		acc: func(_ model.Type, star bool) Accumulator {
			return &countAcc{star: star}
		},
		star: true,
	}
	builtins["sum"] = builtinFunc{
		fType: FuncTypeAgg,
		val:   ValidateOneNumberArg,
		acc: func(argType model.Type, _ bool) Accumulator {
			return &sumAcc{isInt: argType.Kind != model.KindDouble}
		},
	}
	builtins["avg"] = builtinFunc{
		fType: FuncTypeAgg,
		val:   ValidateOneNumberArgAs(model.DoubleType),
		acc: func(_ model.Type, _ bool) Accumulator {
			return &avgAcc{}
		},
	}
	builtins["max"] = builtinFunc{
		fType: FuncTypeAgg,
		val:   ValidateComparable,
		acc: func(_ model.Type, _ bool) Accumulator {
			return &extremeAcc{keep: func(c int) bool { return c > 0 }}
		},
	}
	builtins["min"] = builtinFunc{
		fType: FuncTypeAgg,
		val:   ValidateComparable,
		acc: func(_ model.Type, _ bool) Accumulator {
			return &extremeAcc{keep: func(c int) bool { return c < 0 }}
		},
	}
	builtins["median"] = builtinFunc{
		fType: FuncTypeAgg,
		val:   ValidateOneNumberArgAs(model.DoubleType),
		acc: func(_ model.Type, _ bool) Accumulator {
			return &statsAcc{fn: stats.Median}
		},
	}
	builtins["stddev"] = builtinFunc{
		fType: FuncTypeAgg,
		val:   ValidateOneNumberArgAs(model.DoubleType),
		acc: func(_ model.Type, _ bool) Accumulator {
			return &statsAcc{fn: stats.StandardDeviation}
		},
	}
	builtins["variance"] = builtinFunc{
		fType: FuncTypeAgg,
		val:   ValidateOneNumberArgAs(model.DoubleType),
		acc: func(_ model.Type, _ bool) Accumulator {
			return &statsAcc{fn: stats.Variance}
		},
	}
}

type countAcc struct {
	star  bool
	count int64
}

func (c *countAcc) Add(v model.Value) {
	if c.star || !v.IsNull() {
		c.count++
	}
}

func (c *countAcc) Result() model.Value { return model.Int(c.count) }

// sumAcc starts from zero and ignores null.
type sumAcc struct {
	isInt bool
	i     int64
	f     float64
}

func (s *sumAcc) Add(v model.Value) {
	switch v.Kind() {
	case model.KindBigint:
		s.i += v.Int()
		s.f += float64(v.Int())
	case model.KindDouble:
		s.f += v.Float()
	}
}

func (s *sumAcc) Result() model.Value {
	if s.isInt {
		return model.Int(s.i)
	}
	return model.Float(s.f)
}

type avgAcc struct {
	sum   float64
	count int64
}

func (a *avgAcc) Add(v model.Value) {
	if f, ok := v.AsFloat(); ok {
		a.sum += f
		a.count++
	}
}

func (a *avgAcc) Result() model.Value {
	if a.count == 0 {
		return model.Null
	}
	return model.Float(a.sum / float64(a.count))
}

type extremeAcc struct {
	keep func(c int) bool
	cur  model.Value
}

func (e *extremeAcc) Add(v model.Value) {
	if v.IsNull() {
		return
	}
	if e.cur.IsNull() || e.keep(compare(v, e.cur)) {
		e.cur = v
	}
}

func (e *extremeAcc) Result() model.Value { return e.cur }

func compare(a, b model.Value) int {
	if a.Kind() == model.KindString {
		switch {
		case a.Str() < b.Str():
			return -1
		case a.Str() > b.Str():
			return 1
		}
		return 0
	}
	if a.Kind() == model.KindBigint && b.Kind() == model.KindBigint {
		switch {
		case a.Int() < b.Int():
			return -1
		case a.Int() > b.Int():
			return 1
		}
		return 0
	}
	fa, _ := a.AsFloat()
	fb, _ := b.AsFloat()
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

// statsAcc keeps every contribution, the statistics are computed on read.
type statsAcc struct {
	fn     func(stats.Float64Data) (float64, error)
	values []float64
}

func (s *statsAcc) Add(v model.Value) {
	if f, ok := v.AsFloat(); ok {
		s.values = append(s.values, f)
	}
}

func (s *statsAcc) Result() model.Value {
	if len(s.values) == 0 {
		return model.Null
	}
	r, err := s.fn(s.values)
	if err != nil || math.IsNaN(r) {
		return model.Null
	}
	return model.Float(r)
}
