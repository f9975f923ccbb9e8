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
	"strings"

	"github.com/lf-edge/kql/pkg/errorx"
	"github.com/lf-edge/kql/pkg/model"
)

type FuncType int

const (
	NotFoundFunc FuncType = iota - 1
	FuncTypeScalar
	FuncTypeAgg
)

// Exec runs a scalar function over evaluated arguments.
type Exec func(args []model.Value) (model.Value, error)

// Accumulator folds the values of one aggregate group.
type Accumulator interface {
	Add(v model.Value)
	Result() model.Value
}

type builtinFunc struct {
	fType FuncType
	// val checks the argument types and returns the result type
	val func(args []model.Type) (model.Type, error)
	// exec is set for scalar functions
	exec Exec
	// check short circuits the exec, e.g. null in null out
	check func(args []model.Value) (model.Value, bool)
	// acc is set for aggregate functions
	acc func(argType model.Type, star bool) Accumulator
	// star tells if the aggregate accepts *
	star bool
}

var builtins map[string]builtinFunc

func init() {
	builtins = make(map[string]builtinFunc)
	registerMathFunc()
	registerStrFunc()
	registerMiscFunc()
	registerAggFunc()
}

func GetFuncType(name string) FuncType {
	if f, ok := builtins[strings.ToLower(name)]; ok {
		return f.fType
	}
	return NotFoundFunc
}

func IsAggFunc(name string) bool {
	return GetFuncType(name) == FuncTypeAgg
}

// Scalar is a scalar function bound to argument types.
type Scalar struct {
	Name       string
	ResultType model.Type
	exec       Exec
	check      func(args []model.Value) (model.Value, bool)
}

func (s *Scalar) Exec(args []model.Value) (model.Value, error) {
	if s.check != nil {
		if r, done := s.check(args); done {
			return r, nil
		}
	}
	return s.exec(args)
}

// BindScalar resolves a scalar function and validates its argument types.
func BindScalar(name string, args []model.Type) (*Scalar, error) {
	lowerName := strings.ToLower(name)
	f, ok := builtins[lowerName]
	if !ok {
		return nil, &errorx.UnknownFunctionError{Name: strings.ToUpper(name)}
	}
	if f.fType != FuncTypeScalar {
		return nil, errorx.NewInvalidStatement("aggregate function %s is not allowed here", strings.ToUpper(name))
	}
	rt, err := f.val(args)
	if err != nil {
		return nil, errorx.NewTypeMismatch("function %s: %v", strings.ToUpper(name), err)
	}
	return &Scalar{Name: lowerName, ResultType: rt, exec: f.exec, check: f.check}, nil
}

// Aggregate is an aggregate function bound to its argument type.
type Aggregate struct {
	Name       string
	ResultType model.Type
	argType    model.Type
	star       bool
	acc        func(argType model.Type, star bool) Accumulator
}

func (a *Aggregate) NewAccumulator() Accumulator {
	return a.acc(a.argType, a.star)
}

// BindAggregate resolves an aggregate. star is set for the COUNT(*) form,
// in which case args is empty.
func BindAggregate(name string, args []model.Type, star bool) (*Aggregate, error) {
	lowerName := strings.ToLower(name)
	f, ok := builtins[lowerName]
	if !ok {
		return nil, &errorx.UnknownFunctionError{Name: strings.ToUpper(name)}
	}
	if f.fType != FuncTypeAgg {
		return nil, errorx.NewInvalidStatement("%s is not an aggregate function", strings.ToUpper(name))
	}
	if star {
		if !f.star {
			return nil, errorx.NewTypeMismatch("function %s does not accept *", strings.ToUpper(name))
		}
		return &Aggregate{Name: lowerName, ResultType: model.BigintType, star: true, acc: f.acc}, nil
	}
	rt, err := f.val(args)
	if err != nil {
		return nil, errorx.NewTypeMismatch("function %s: %v", strings.ToUpper(name), err)
	}
	return &Aggregate{Name: lowerName, ResultType: rt, argType: args[0], acc: f.acc}, nil
}

// returnNilIfHasAnyNil is the null in null out check
func returnNilIfHasAnyNil(args []model.Value) (model.Value, bool) {
	for _, arg := range args {
		if arg.IsNull() {
			return model.Null, true
		}
	}
	return model.Null, false
}
