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

package planner

import (
	"fmt"

	"github.com/lf-edge/kql/internal/xsql"
	"github.com/lf-edge/kql/pkg/ast"
)

type FilterPlan struct {
	baseLogicalPlan
	condition ast.Expr
	eval      xsql.Evaluator
}

func (p FilterPlan) Init() *FilterPlan {
	return &p
}

func (p *FilterPlan) Explain() string {
	return fmt.Sprintf("Filter: %s", p.condition)
}
