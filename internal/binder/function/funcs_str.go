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
	"strings"
	"unicode/utf8"

	"github.com/lf-edge/kql/pkg/model"
)

func registerStrFunc() {
	builtins["lcase"] = builtinFunc{
		fType: FuncTypeScalar,
		exec: func(args []model.Value) (model.Value, error) {
			return model.Str(strings.ToLower(args[0].Str())), nil
		},
		val:   ValidateOneStrArgAs(model.StringType),
		check: returnNilIfHasAnyNil,
	}
	builtins["ucase"] = builtinFunc{
		fType: FuncTypeScalar,
		exec: func(args []model.Value) (model.Value, error) {
			return model.Str(strings.ToUpper(args[0].Str())), nil
		},
		val:   ValidateOneStrArgAs(model.StringType),
		check: returnNilIfHasAnyNil,
	}
	builtins["trim"] = builtinFunc{
		fType: FuncTypeScalar,
		exec: func(args []model.Value) (model.Value, error) {
			return model.Str(strings.TrimSpace(args[0].Str())), nil
		},
		val:   ValidateOneStrArgAs(model.StringType),
		check: returnNilIfHasAnyNil,
	}
	builtins["len"] = builtinFunc{
		fType: FuncTypeScalar,
		exec: func(args []model.Value) (model.Value, error) {
			return model.Int(int64(utf8.RuneCountInString(args[0].Str()))), nil
		},
		val:   ValidateOneStrArgAs(model.BigintType),
		check: returnNilIfHasAnyNil,
	}
	builtins["concat"] = builtinFunc{
		fType: FuncTypeScalar,
		exec: func(args []model.Value) (model.Value, error) {
			var b strings.Builder
			for _, a := range args {
				b.WriteString(a.Str())
			}
			return model.Str(b.String()), nil
		},
		val: func(args []model.Type) (model.Type, error) {
			if len(args) == 0 {
				return model.NullType, fmt.Errorf("expect at least 1 argument but found 0")
			}
			for i, a := range args {
				if !isKind(a, model.KindString) {
					return model.NullType, ProduceErrInfo(i, "string")
				}
			}
			return model.StringType, nil
		},
		check: returnNilIfHasAnyNil,
	}
	// substring(str, start[, end]) with 0 based start and exclusive end, clamped to the string.
	builtins["substring"] = builtinFunc{
		fType: FuncTypeScalar,
		exec: func(args []model.Value) (model.Value, error) {
			runes := []rune(args[0].Str())
			start := clamp(args[1].Int(), len(runes))
			end := int64(len(runes))
			if len(args) == 3 {
				end = clamp(args[2].Int(), len(runes))
			}
			if end <= start {
				return model.Str(""), nil
			}
			return model.Str(string(runes[start:end])), nil
		},
		val: func(args []model.Type) (model.Type, error) {
			if len(args) != 2 && len(args) != 3 {
				return model.NullType, fmt.Errorf("expect 2 or 3 arguments but found %d", len(args))
			}
			if !isKind(args[0], model.KindString) {
				return model.NullType, ProduceErrInfo(0, "string")
			}
			for i := 1; i < len(args); i++ {
				if !isKind(args[i], model.KindBigint) {
					return model.NullType, ProduceErrInfo(i, "bigint")
				}
			}
			return model.StringType, nil
		},
		check: returnNilIfHasAnyNil,
	}
}

func clamp(i int64, n int) int64 {
	if i < 0 {
		return 0
	}
	if i > int64(n) {
		return int64(n)
	}
	return i
}
