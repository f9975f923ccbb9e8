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

package node

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/lf-edge/kql/internal/conf"
	"github.com/lf-edge/kql/metrics"
)

// Emitter is a node with outputs.
type Emitter interface {
	AddOutput(output chan<- any, name string) error
	GetName() string
}

// OperatorNode runs between the source and the sink. Exec blocks until the
// context is done or the node fails.
type OperatorNode interface {
	Emitter
	GetInput() (chan<- any, string)
	Exec(ctx context.Context, errCh chan<- error)
}

type DataSourceNode interface {
	Emitter
	Open(ctx context.Context, errCh chan<- error)
}

// StatefulNode is an operator holding state beyond the current row.
type StatefulNode interface {
	ClearState()
}

type defaultNode struct {
	name    string
	queryID string
	outputs map[string]chan<- any
	logger  *logrus.Entry
	// counters of the records in and out of the node
	recordsIn  prometheus.Counter
	recordsOut prometheus.Counter
}

func newDefaultNode(queryID, name string) *defaultNode {
	return &defaultNode{
		name:       name,
		queryID:    queryID,
		outputs:    make(map[string]chan<- any),
		logger:     conf.Log.WithField("query", queryID).WithField("op", name),
		recordsIn:  metrics.RecordsInCounter.WithLabelValues(queryID, name),
		recordsOut: metrics.RecordsOutCounter.WithLabelValues(queryID, name),
	}
}

func (o *defaultNode) AddOutput(output chan<- any, name string) error {
	if _, ok := o.outputs[name]; ok {
		return fmt.Errorf("fail to add output %s, node %s already has an output of the same name", name, o.name)
	}
	o.outputs[name] = output
	return nil
}

func (o *defaultNode) GetName() string {
	return o.name
}

// Broadcast sends the value to every output. It blocks on a full output
// until the context is done, so a slow consumer slows the whole flow.
func (o *defaultNode) Broadcast(ctx context.Context, val any) bool {
	for _, out := range o.outputs {
		select {
		case out <- val:
		case <-ctx.Done():
			return false
		}
	}
	o.recordsOut.Inc()
	return true
}

type defaultSinkNode struct {
	*defaultNode
	input chan any
}

func newDefaultSinkNode(queryID, name string, bufferLength int) *defaultSinkNode {
	if bufferLength <= 0 {
		bufferLength = 1024
	}
	return &defaultSinkNode{
		defaultNode: newDefaultNode(queryID, name),
		input:       make(chan any, bufferLength),
	}
}

func (o *defaultSinkNode) GetInput() (chan<- any, string) {
	return o.input, o.name
}
