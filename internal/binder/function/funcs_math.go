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
	"math/rand"

	"github.com/lf-edge/kql/pkg/model"
)

func registerMathFunc() {
	builtins["abs"] = builtinFunc{
		fType: FuncTypeScalar,
		exec: func(args []model.Value) (model.Value, error) {
			if args[0].Kind() == model.KindBigint {
				v := args[0].Int()
				if v < 0 {
					v = -v
				}
				return model.Int(v), nil
			}
			return model.Float(math.Abs(args[0].Float())), nil
		},
		val:   ValidateOneNumberArg,
		check: returnNilIfHasAnyNil,
	}
	builtins["ceil"] = builtinFunc{
		fType: FuncTypeScalar,
		exec:  roundingExec(math.Ceil),
		val:   ValidateOneNumberArg,
		check: returnNilIfHasAnyNil,
	}
	builtins["floor"] = builtinFunc{
		fType: FuncTypeScalar,
		exec:  roundingExec(math.Floor),
		val:   ValidateOneNumberArg,
		check: returnNilIfHasAnyNil,
	}
	builtins["round"] = builtinFunc{
		fType: FuncTypeScalar,
		exec: func(args []model.Value) (model.Value, error) {
			f, _ := args[0].AsFloat()
			return model.Int(int64(math.Round(f))), nil
		},
		val:   ValidateOneNumberArgAs(model.BigintType),
		check: returnNilIfHasAnyNil,
	}
	builtins["sqrt"] = builtinFunc{
		fType: FuncTypeScalar,
		exec: func(args []model.Value) (model.Value, error) {
			f, _ := args[0].AsFloat()
			if f < 0 {
				return model.Null, nil
			}
			return model.Float(math.Sqrt(f)), nil
		},
		val:   ValidateOneNumberArgAs(model.DoubleType),
		check: returnNilIfHasAnyNil,
	}
	builtins["random"] = builtinFunc{
		fType: FuncTypeScalar,
		exec: func(_ []model.Value) (model.Value, error) {
			return model.Float(rand.Float64()), nil
		},
		val: ValidateNoArg(model.DoubleType),
	}
}

func roundingExec(fn func(float64) float64) Exec {
	return func(args []model.Value) (model.Value, error) {
		if args[0].Kind() == model.KindBigint {
			return args[0], nil
		}
		return model.Float(fn(args[0].Float())), nil
	}
}
