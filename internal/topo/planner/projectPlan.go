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
)

// ProjectPlan builds a fresh row per input row. In aggregate queries it emits
// the aggregation inputs: the group by values then the aggregate arguments.
type ProjectPlan struct {
	baseLogicalPlan
	fields []xsql.Evaluator
	// aggInput tells the plan feeds an aggregate
	aggInput bool
}

func (p ProjectPlan) Init() *ProjectPlan {
	return &p
}

func (p *ProjectPlan) Explain() string {
	names := make([]string, len(p.fields))
	for i, f := range p.fields {
		if f == nil {
			names[i] = "*"
		} else {
			names[i] = f.String()
		}
	}
	if p.aggInput {
		return fmt.Sprintf("Project (aggregation input): %s", strings.Join(names, ", "))
	}
	return fmt.Sprintf("Project: %s", strings.Join(names, ", "))
}
