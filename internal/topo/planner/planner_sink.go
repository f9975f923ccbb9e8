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

	"github.com/lf-edge/kql/internal/meta"
)

// SinkPlan appends the output rows to the derived topic.
type SinkPlan struct {
	baseLogicalPlan
	source *meta.Source
	topic  *meta.Topic
}

func (p SinkPlan) Init() *SinkPlan {
	return &p
}

func (p *SinkPlan) Explain() string {
	return fmt.Sprintf("Sink: %s topic=%s format=%s schema=%s", p.source.Name, p.topic.Name, p.topic.Format, p.source.Schema)
}
