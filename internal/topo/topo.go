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

package topo

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lf-edge/kql/internal/conf"
	"github.com/lf-edge/kql/internal/topo/node"
	"github.com/lf-edge/kql/pkg/infra"
)

// PrintableTopo is the json view of the node graph of a query.
type PrintableTopo struct {
	Sources []string            `json:"sources"`
	Edges   map[string][]string `json:"edges"`
}

// Topo is the running graph of one persistent query. Every node runs in its
// own goroutine and reports its fatal error to the drain channel.
type Topo struct {
	sources []node.DataSourceNode
	sinks   []*node.SinkNode
	ops     []node.OperatorNode
	name    string
	ctx     context.Context
	cancel  context.CancelFunc
	drain   chan error
	wg      sync.WaitGroup
	topo    *PrintableTopo
	logger  *logrus.Entry
	mu      sync.Mutex
}

func NewWithName(name string) *Topo {
	return &Topo{
		name: name,
		topo: &PrintableTopo{
			Sources: make([]string, 0),
			Edges:   make(map[string][]string),
		},
		logger: conf.Log.WithField("query", name),
	}
}

func (s *Topo) AddSrc(src node.DataSourceNode) *Topo {
	s.sources = append(s.sources, src)
	s.topo.Sources = append(s.topo.Sources, fmt.Sprintf("source_%s", src.GetName()))
	return s
}

func (s *Topo) AddOperator(inputs []node.Emitter, operator node.OperatorNode) (*Topo, error) {
	for _, input := range inputs {
		if err := input.AddOutput(operator.GetInput()); err != nil {
			return nil, err
		}
		s.addEdge(input, operator, "op")
	}
	s.ops = append(s.ops, operator)
	return s, nil
}

func (s *Topo) AddSink(inputs []node.Emitter, snk *node.SinkNode) (*Topo, error) {
	for _, input := range inputs {
		if err := input.AddOutput(snk.GetInput()); err != nil {
			return nil, err
		}
		s.addEdge(input, snk, "sink")
	}
	s.sinks = append(s.sinks, snk)
	return s, nil
}

func (s *Topo) addEdge(from node.Emitter, to node.Emitter, toType string) {
	fromType := "op"
	if _, ok := from.(node.DataSourceNode); ok {
		fromType = "source"
	}
	f := fmt.Sprintf("%s_%s", fromType, from.GetName())
	t := fmt.Sprintf("%s_%s", toType, to.GetName())
	s.topo.Edges[f] = append(s.topo.Edges[f], t)
}

// Open starts the sinks, then the operators and the sources last. The
// returned channel receives the first fatal error of any node.
func (s *Topo) Open() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil && s.ctx.Err() == nil {
		s.logger.Info("query is already running, do nothing")
		return s.drain
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.drain = make(chan error, 1)
	s.logger.Info("Opening stream")
	for _, snk := range s.sinks {
		s.run(snk.GetName(), snk.Open)
	}
	for _, op := range s.ops {
		s.run(op.GetName(), op.Exec)
	}
	for _, source := range s.sources {
		s.run(source.GetName(), source.Open)
	}
	return s.drain
}

func (s *Topo) run(name string, fn func(ctx context.Context, errCh chan<- error)) {
	ctx, drain := s.ctx, s.drain
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := infra.SafeRun(func() error {
			fn(ctx, drain)
			return nil
		})
		if err != nil {
			s.logger.Errorf("node %s panics: %v", name, err)
			infra.DrainError(ctx, err, drain)
		}
	}()
}

// Cancel stops every node and waits for them to exit. It may be called
// multiple times.
func (s *Topo) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// ClearState drops the state of the stateful operators. It must only be
// called once the topo is cancelled.
func (s *Topo) ClearState() {
	for _, op := range s.ops {
		if so, ok := op.(node.StatefulNode); ok {
			so.ClearState()
		}
	}
}

func (s *Topo) GetTopo() *PrintableTopo {
	return s.topo
}

// GetName returns the query id.
func (s *Topo) GetName() string {
	return s.name
}
