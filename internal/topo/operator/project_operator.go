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

// ProjectOp builds a fresh row from the evaluated fields. A nil field yields
// null, which is the argument of COUNT(*).
type ProjectOp struct {
	Fields []xsql.Evaluator
}

func (pp *ProjectOp) Apply(_ context.Context, data any) any {
	switch input := data.(type) {
	case error:
		return input
	case *xsql.Tuple:
		row, err := pp.Project(input.Row)
		if err != nil {
			return err
		}
		return input.WithRow(row)
	default:
		return fmt.Errorf("run Select error: invalid input %[1]T(%[1]v)", input)
	}
}

func (pp *ProjectOp) Project(row model.Row) (model.Row, error) {
	b := model.NewRowBuilder(len(pp.Fields))
	for i, f := range pp.Fields {
		if f == nil {
			continue
		}
		v, err := f.Eval(row)
		if err != nil {
			return model.Row{}, err
		}
		b.Set(i, v)
	}
	return b.Build(), nil
}
