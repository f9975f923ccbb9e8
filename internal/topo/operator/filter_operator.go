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

package operator

import (
	"context"
	"fmt"

	"github.com/lf-edge/kql/internal/xsql"
	"github.com/lf-edge/kql/pkg/model"
)

// FilterOp keeps the tuples whose condition is true. False and null drop the tuple.
type FilterOp struct {
	Condition xsql.Evaluator
}

func (p *FilterOp) Apply(_ context.Context, data any) any {
	switch input := data.(type) {
	case error:
		return input
	case *xsql.Tuple:
		ok, err := p.Match(input.Row)
		if err != nil {
			return err
		}
		if ok {
			return input
		}
		return nil
	default:
		return fmt.Errorf("run Where error: invalid input %[1]T(%[1]v)", input)
	}
}

func (p *FilterOp) Match(row model.Row) (bool, error) {
	v, err := p.Condition.Eval(row)
	if err != nil {
		return false, err
	}
	return v.Kind() == model.KindBoolean && v.Bool(), nil
}
