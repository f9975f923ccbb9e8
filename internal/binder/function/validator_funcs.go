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
	"fmt"

	"github.com/lf-edge/kql/pkg/model"
)

func ProduceErrInfo(index int, expect string) (err error) {
	index++
	err = fmt.Errorf("expect %s type for parameter %d", expect, index)
	return
}

func ValidateLen(exp, actual int) error {
	if actual != exp {
		return fmt.Errorf("expect %d arguments but found %d", exp, actual)
	}
	return nil
}

func isNumeric(t model.Type) bool {
	return t.IsNumeric() || t.Kind == model.KindNull
}

func isKind(t model.Type, k model.Kind) bool {
	return t.Kind == k || t.Kind == model.KindNull
}

// widen returns DOUBLE if any argument is DOUBLE, BIGINT otherwise.
func widen(args []model.Type) model.Type {
	for _, a := range args {
		if a.Kind == model.KindDouble {
			return model.DoubleType
		}
	}
	return model.BigintType
}

func ValidateNoArg(ret model.Type) func([]model.Type) (model.Type, error) {
	return func(args []model.Type) (model.Type, error) {
		return ret, ValidateLen(0, len(args))
	}
}

// ValidateOneNumberArg returns the type of the argument.
func ValidateOneNumberArg(args []model.Type) (model.Type, error) {
	if err := ValidateLen(1, len(args)); err != nil {
		return model.NullType, err
	}
	if !isNumeric(args[0]) {
		return model.NullType, ProduceErrInfo(0, "number - double or bigint")
	}
	return widen(args), nil
}

func ValidateOneNumberArgAs(ret model.Type) func([]model.Type) (model.Type, error) {
	return func(args []model.Type) (model.Type, error) {
		if _, err := ValidateOneNumberArg(args); err != nil {
			return model.NullType, err
		}
		return ret, nil
	}
}

func ValidateOneStrArgAs(ret model.Type) func([]model.Type) (model.Type, error) {
	return func(args []model.Type) (model.Type, error) {
		if err := ValidateLen(1, len(args)); err != nil {
			return model.NullType, err
		}
		if !isKind(args[0], model.KindString) {
			return model.NullType, ProduceErrInfo(0, "string")
		}
		return ret, nil
	}
}

// ValidateComparable accepts one number or string argument and returns its type.
func ValidateComparable(args []model.Type) (model.Type, error) {
	if err := ValidateLen(1, len(args)); err != nil {
		return model.NullType, err
	}
	if !isNumeric(args[0]) && !isKind(args[0], model.KindString) {
		return model.NullType, ProduceErrInfo(0, "number or string")
	}
	return args[0], nil
}
