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

func registerMiscFunc() {
	builtins["ifnull"] = builtinFunc{
		fType: FuncTypeScalar,
		exec: func(args []model.Value) (model.Value, error) {
			if args[0].IsNull() {
				return args[1], nil
			}
			return args[0], nil
		},
		val: func(args []model.Type) (model.Type, error) {
			if err := ValidateLen(2, len(args)); err != nil {
				return model.NullType, err
			}
			switch {
			case args[0].Kind == model.KindNull:
				return args[1], nil
			case args[1].Kind == model.KindNull, args[0].Equal(args[1]):
				return args[0], nil
			default:
				return model.NullType, fmt.Errorf("arguments must have the same type, got %s and %s", args[0], args[1])
			}
		},
	}
	builtins["cardinality"] = builtinFunc{
		fType: FuncTypeScalar,
		exec: func(args []model.Value) (model.Value, error) {
			return model.Int(int64(args[0].Len())), nil
		},
		val: func(args []model.Type) (model.Type, error) {
			if err := ValidateLen(1, len(args)); err != nil {
				return model.NullType, err
			}
			if !isKind(args[0], model.KindArray) && args[0].Kind != model.KindMap {
				return model.NullType, ProduceErrInfo(0, "array or map")
			}
			return model.BigintType, nil
		},
		check: returnNilIfHasAnyNil,
	}
	builtins["arraycontains"] = builtinFunc{
		fType: FuncTypeScalar,
		exec: func(args []model.Value) (model.Value, error) {
			if args[0].IsNull() {
				return model.Null, nil
			}
			for _, e := range args[0].Elems() {
				if e.Equal(args[1]) {
					return model.Bool(true), nil
				}
			}
			return model.Bool(false), nil
		},
		val: func(args []model.Type) (model.Type, error) {
			if err := ValidateLen(2, len(args)); err != nil {
				return model.NullType, err
			}
			if args[0].Kind == model.KindNull {
				return model.BooleanType, nil
			}
			if args[0].Kind != model.KindArray {
				return model.NullType, ProduceErrInfo(0, "array")
			}
			if args[1].Kind != model.KindNull && !args[0].Elem.Equal(args[1]) {
				return model.NullType, ProduceErrInfo(1, args[0].Elem.String())
			}
			return model.BooleanType, nil
		},
	}
}
