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
)

type LogicalPlan interface {
	Children() []LogicalPlan
	SetChildren(children []LogicalPlan)
	// Explain describes the plan node itself without its children
	Explain() string
}

type baseLogicalPlan struct {
	children []LogicalPlan
}

func (p *baseLogicalPlan) Children() []LogicalPlan {
	return p.children
}

func (p *baseLogicalPlan) SetChildren(children []LogicalPlan) {
	p.children = children
}

// Explain prints the plan tree top down, one node per line.
func Explain(lp LogicalPlan) string {
	sb := &strings.Builder{}
	explain(sb, lp, 0)
	return strings.TrimRight(sb.String(), "\n")
}

func explain(sb *strings.Builder, lp LogicalPlan, depth int) {
	fmt.Fprintf(sb, "%s%s\n", strings.Repeat("  ", depth), lp.Explain())
	for _, child := range lp.Children() {
		explain(sb, child, depth+1)
	}
}
