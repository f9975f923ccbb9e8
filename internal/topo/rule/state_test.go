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

package rule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lf-edge/kql/internal/conf"
	"github.com/lf-edge/kql/internal/converter"
	"github.com/lf-edge/kql/internal/io/memory"
	"github.com/lf-edge/kql/internal/topo"
	"github.com/lf-edge/kql/internal/topo/node"
	"github.com/lf-edge/kql/pkg/model"
)

func newTopo(t *testing.T, topic string) *topo.Topo {
	log := memory.NewLog()
	require.NoError(t, log.CreateTopic(context.Background(), "in", 1))
	require.NoError(t, log.CreateTopic(context.Background(), "out", 1))
	codec, err := converter.GetCodec("json")
	require.NoError(t, err)
	schema := model.MustSchema([]model.Column{{Name: "A", Type: model.BigintType}}, "")
	tp := topo.NewWithName("CSAS_OUT_0")
	src := node.NewSourceNode("CSAS_OUT_0", "IN", log, topic, codec, schema, -1)
	tp.AddSrc(src)
	snk := node.NewSinkNode("CSAS_OUT_0", "OUT", 10, log, "out", codec, schema, conf.RetryConf{Attempts: 1, Delay: 1, MaxDelay: 1})
	_, err = tp.AddSink([]node.Emitter{src}, snk)
	require.NoError(t, err)
	return tp
}

func TestStateLifecycle(t *testing.T) {
	s := NewState("CSAS_OUT_0", newTopo(t, "in"))
	var transits []RunState
	s.OnChange(func(_ string, st RunState) { transits = append(transits, st) })
	assert.Equal(t, Created, s.GetState())
	s.Stop()
	assert.Equal(t, Created, s.GetState())

	require.NoError(t, s.Start())
	assert.Equal(t, ErrAlreadyStarted, s.Start())
	assert.Equal(t, Running, s.GetState())
	s.Stop()
	s.Stop()
	assert.Equal(t, Terminated, s.GetState())
	assert.Equal(t, ErrAlreadyStarted, s.Start())
	assert.Equal(t, []RunState{Running, Terminated}, transits)

	status := s.GetStatus()
	assert.Equal(t, "terminated", status.State)
	assert.Empty(t, status.Message)
	assert.Equal(t, []string{"source_IN"}, s.GetTopoGraph().Sources)
}

func TestStateFailed(t *testing.T) {
	s := NewState("CSAS_OUT_0", newTopo(t, "missing"))
	require.NoError(t, s.Start())
	s.Wait()
	assert.Equal(t, Failed, s.GetState())
	assert.Contains(t, s.GetLastWill(), "topic missing is not found")
	s.Stop()
	assert.Equal(t, Failed, s.GetState())
	assert.Equal(t, "failed", s.GetStatus().State)
}

type statefulOp struct {
	*node.UnaryOperator
	cleared bool
}

func (o *statefulOp) ClearState() {
	o.cleared = true
}

func TestStateClean(t *testing.T) {
	tp := newTopo(t, "in")
	op := &statefulOp{UnaryOperator: node.New("CSAS_OUT_0", "1_aggregate", 10)}
	op.SetOperation(node.UnFunc(func(_ context.Context, data any) any { return data }))
	_, err := tp.AddOperator(nil, op)
	require.NoError(t, err)
	s := NewState("CSAS_OUT_0", tp)
	require.NoError(t, s.Start())
	s.Clean()
	assert.Equal(t, Terminated, s.GetState())
	assert.True(t, op.cleared)
}
