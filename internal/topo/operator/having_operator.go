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
)

// HavingOp filters post aggregation tuples. It shares the semantics of FilterOp.
type HavingOp struct {
	FilterOp
}

func NewHavingOp(cond xsql.Evaluator) *HavingOp {
	return &HavingOp{FilterOp{Condition: cond}}
}

func (p *HavingOp) Apply(ctx context.Context, data any) any {
	r := p.FilterOp.Apply(ctx, data)
	if err, ok := r.(error); ok {
		return fmt.Errorf("run Having error: %w", err)
	}
	return r
}
