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

	"github.com/lf-edge/kql/pkg/ast"
)

type WindowPlan struct {
	baseLogicalPlan
	// window is nil for a group by without window
	window *ast.Window
}

func (p WindowPlan) Init() *WindowPlan {
	return &p
}

func (p *WindowPlan) Explain() string {
	if p.window == nil {
		return "WindowAssign: UNBOUNDED"
	}
	return fmt.Sprintf("WindowAssign: %s", p.window)
}
