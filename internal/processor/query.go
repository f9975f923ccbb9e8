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

package processor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lf-edge/kql/internal/conf"
	"github.com/lf-edge/kql/internal/meta"
	"github.com/lf-edge/kql/internal/topo"
	"github.com/lf-edge/kql/internal/topo/planner"
	"github.com/lf-edge/kql/internal/topo/rule"
	"github.com/lf-edge/kql/internal/xsql"
	"github.com/lf-edge/kql/metrics"
	"github.com/lf-edge/kql/pkg/api"
	"github.com/lf-edge/kql/pkg/ast"
	"github.com/lf-edge/kql/pkg/errorx"
)

var ErrAlreadyStarted = rule.ErrAlreadyStarted

type Options struct {
	// DefaultFormat is the value format when neither the statement nor the input topic names one
	DefaultFormat     string
	DefaultPartitions int
	BufferLength      int
	Grace             time.Duration
	SinkRetry         conf.RetryConf
}

// OptionsFromConf reads the engine options of the configuration.
func OptionsFromConf(c *conf.KqlConf) *Options {
	return &Options{
		DefaultFormat:     c.Engine.DefaultFormat,
		DefaultPartitions: c.Log.Partitions,
		BufferLength:      c.Engine.BufferLength,
		Grace:             time.Duration(c.Engine.Grace) * time.Millisecond,
		SinkRetry:         c.Engine.SinkRetry,
	}
}

// PersistentQuery is a compiled CREATE STREAM AS SELECT. It owns its topo.
type PersistentQuery struct {
	ID        string
	Statement string
	// Sink is the name of the derived stream
	Sink     string
	Source   string
	plan     *planner.Plan
	state    *rule.State
	appended atomic.Int64
}

func (q *PersistentQuery) State() rule.RunState {
	return q.state.GetState()
}

func (q *PersistentQuery) Status() rule.Status {
	return q.state.GetStatus()
}

// Explain prints the logical plan.
func (q *PersistentQuery) Explain() string {
	return planner.Explain(q.plan.Logical)
}

func (q *PersistentQuery) Topo() *topo.PrintableTopo {
	return q.state.GetTopoGraph()
}

// Appended is the number of rows the query wrote to its sink topic.
func (q *PersistentQuery) Appended() int64 {
	return q.appended.Load()
}

// Output is the derived source the query writes.
func (q *PersistentQuery) Output() *meta.Source {
	return q.plan.Output
}

// Wait blocks until a started query stops running.
func (q *PersistentQuery) Wait() {
	q.state.Wait()
}

// QueryEngine compiles statements against the registry and manages the
// lifecycle of the persistent queries.
type QueryEngine struct {
	store *meta.Store
	log   api.Log
	opts  *Options

	// mu serializes the registry changing statements
	mu      sync.Mutex
	qmu     sync.RWMutex
	queries map[string]*PersistentQuery
	seq     int
}

func NewQueryEngine(store *meta.Store, log api.Log, opts *Options) *QueryEngine {
	if opts == nil {
		opts = &Options{}
	}
	if opts.DefaultFormat == "" {
		opts.DefaultFormat = "json"
	}
	if opts.DefaultPartitions <= 0 {
		opts.DefaultPartitions = 1
	}
	return &QueryEngine{
		store:   store,
		log:     log,
		opts:    opts,
		queries: make(map[string]*PersistentQuery),
	}
}

// Compile parses and plans a CREATE STREAM AS SELECT, registers the derived
// stream and its topic and returns the query in the created state. Any
// failure is a CompileError and leaves the registry untouched.
func (e *QueryEngine) Compile(ctx context.Context, statement string) (*PersistentQuery, error) {
	stmt, err := xsql.Parse(statement)
	if err != nil {
		return nil, &errorx.CompileError{Statement: statement, Err: err}
	}
	csas, ok := stmt.(*ast.CreateStreamAsSelect)
	if !ok {
		return nil, &errorx.CompileError{Statement: statement, Err: errorx.NewInvalidStatement("expect CREATE STREAM AS SELECT")}
	}
	return e.compile(ctx, csas)
}

func (e *QueryEngine) compile(ctx context.Context, csas *ast.CreateStreamAsSelect) (*PersistentQuery, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, err := e.doCompile(ctx, csas)
	if err != nil {
		return nil, &errorx.CompileError{Statement: csas.Text, Err: err}
	}
	return q, nil
}

func (e *QueryEngine) doCompile(ctx context.Context, csas *ast.CreateStreamAsSelect) (*PersistentQuery, error) {
	plan, err := planner.CreateLogicalPlan(csas, e.store, e.opts.DefaultFormat)
	if err != nil {
		return nil, err
	}
	id := fmt.Sprintf("CSAS_%s_%d", strings.ToUpper(csas.Name), e.seq)
	q := &PersistentQuery{
		ID:        id,
		Statement: csas.Text,
		Sink:      plan.Output.Name,
		Source:    plan.Input.Name,
		plan:      plan,
	}
	tp, err := planner.CreateTopo(id, plan, e.log, &planner.TopoOptions{
		BufferLength: e.opts.BufferLength,
		Grace:        e.opts.Grace,
		SinkRetry:    e.opts.SinkRetry,
		OnAppend: func(int64) {
			q.appended.Add(1)
		},
	})
	if err != nil {
		return nil, err
	}
	plan.Output.Query = id
	if err := e.store.PutSourceWithTopic(plan.Output, plan.OutputTopic); err != nil {
		return nil, err
	}
	if err := e.log.CreateTopic(ctx, plan.OutputTopic.Name, plan.OutputTopic.Partitions); err != nil {
		_ = e.store.DropSource(plan.Output.Name)
		_ = e.store.DropTopic(plan.OutputTopic.Name)
		return nil, fmt.Errorf("create topic %s error: %w", plan.OutputTopic.Name, err)
	}
	e.seq++
	q.state = rule.NewState(id, tp)
	q.state.OnChange(func(string, rule.RunState) { e.publishCounts() })
	e.qmu.Lock()
	e.queries[id] = q
	e.qmu.Unlock()
	e.publishCounts()
	conf.Log.Infof("query %s is compiled: %s", id, csas.Text)
	return q, nil
}

// Start begins the row flow of a created query. A query starts only once.
func (e *QueryEngine) Start(q *PersistentQuery) error {
	return q.state.Start()
}

// Terminate stops the query and waits for its nodes to exit. With cleanup
// the window state is dropped, the derived stream and topic are dropped from
// the registry unless another query still reads the stream, and the query is
// forgotten. An unknown or stopped query is a no-op.
func (e *QueryEngine) Terminate(id string, cleanup bool) error {
	q, ok := e.Get(id)
	if !ok {
		return nil
	}
	if !cleanup {
		q.state.Stop()
		return nil
	}
	q.state.Clean()
	e.mu.Lock()
	defer e.mu.Unlock()
	if reader, ok := e.readerOf(q.Sink, q.ID); ok {
		conf.Log.Infof("keep stream %s of query %s, query %s is reading from it", q.Sink, q.ID, reader)
	} else {
		if err := e.store.DropSource(q.Sink); err != nil {
			conf.Log.Warnf("drop stream %s of query %s error: %v", q.Sink, q.ID, err)
		}
		if err := e.store.DropTopic(q.plan.OutputTopic.Name); err != nil {
			conf.Log.Warnf("drop topic %s of query %s error: %v", q.plan.OutputTopic.Name, q.ID, err)
		}
	}
	e.qmu.Lock()
	delete(e.queries, q.ID)
	e.qmu.Unlock()
	metrics.RemoveQueryStatus(q.ID)
	e.publishCounts()
	return nil
}

// readerOf returns a created or running query other than self reading source.
func (e *QueryEngine) readerOf(source, self string) (string, bool) {
	for _, q := range e.List() {
		if q.ID == self || !strings.EqualFold(q.Source, source) {
			continue
		}
		if st := q.State(); st == rule.Created || st == rule.Running {
			return q.ID, true
		}
	}
	return "", false
}

func (e *QueryEngine) Get(id string) (*PersistentQuery, bool) {
	e.qmu.RLock()
	defer e.qmu.RUnlock()
	q, ok := e.queries[strings.ToUpper(id)]
	return q, ok
}

// List returns the queries ordered by id.
func (e *QueryEngine) List() []*PersistentQuery {
	e.qmu.RLock()
	result := make([]*PersistentQuery, 0, len(e.queries))
	for _, q := range e.queries {
		result = append(result, q)
	}
	e.qmu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// Store returns the registry the engine compiles against.
func (e *QueryEngine) Store() *meta.Store {
	return e.store
}

// Close terminates every running query.
func (e *QueryEngine) Close() {
	for _, q := range e.List() {
		q.state.Stop()
	}
}

func (e *QueryEngine) publishCounts() {
	counts := make(map[string]int, len(rule.StateName))
	for _, n := range rule.StateName {
		counts[n] = 0
	}
	for _, q := range e.List() {
		counts[q.State().String()]++
	}
	metrics.SetQueryStatusCount(counts)
}
