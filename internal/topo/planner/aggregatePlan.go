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
	"strings"

	"github.com/lf-edge/kql/internal/xsql"
	"github.com/lf-edge/kql/pkg/ast"
)

// AggregatePlan folds the windowed groups. Its child is always a WindowPlan.
// projected evaluates the output row over the post aggregation row.
type AggregatePlan struct {
	baseLogicalPlan
	dimensions ast.Dimensions
	aggs       []*xsql.AggregateCall
	projected  []xsql.Evaluator
}

func (p AggregatePlan) Init() *AggregatePlan {
	return &p
}

func (p *AggregatePlan) Explain() string {
	dims := make([]string, len(p.dimensions))
	for i, d := range p.dimensions {
		dims[i] = d.String()
	}
	aggs := make([]string, len(p.aggs))
	for i, a := range p.aggs {
		aggs[i] = a.Expr.String()
	}
	return fmt.Sprintf("Aggregate: group by %s aggregates %s", strings.Join(dims, ", "), strings.Join(aggs, ", "))
}

func (p *AggregatePlan) windowPlan() *WindowPlan {
	return p.children[0].(*WindowPlan)
}
