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

package meta

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lf-edge/kql/pkg/ast"
	"github.com/lf-edge/kql/pkg/errorx"
	"github.com/lf-edge/kql/pkg/kv"
	"github.com/lf-edge/kql/pkg/model"
)

func ordersSource(name string) *Source {
	return &Source{
		Name:  name,
		Kind:  ast.TypeStream,
		Topic: name + "_topic",
		Schema: model.MustSchema([]model.Column{
			{Name: "ORDERTIME", Type: model.BigintType},
			{Name: "ORDERID", Type: model.StringType},
			{Name: "PRICEARRAY", Type: model.ArrayOf(model.DoubleType)},
			{Name: "KEYVALUEMAP", Type: model.MapOf(model.DoubleType)},
		}, "ORDERID"),
		TimestampColumn: "ORDERTIME",
	}
}

func newMirror(t *testing.T) kv.KeyValue {
	m, err := kv.NewMemoryStoreBuilder().CreateStore("registry")
	require.NoError(t, err)
	return m
}

func TestStore_Sources(t *testing.T) {
	s := NewStore(nil)
	require.NoError(t, s.PutSource(ordersSource("orders")))
	require.NoError(t, s.PutSource(&Source{Name: "users", Kind: ast.TypeTable, Topic: "u", Schema: model.MustSchema(nil, "")}))

	src, err := s.GetSource("ORDERS")
	require.NoError(t, err)
	assert.Equal(t, "orders", src.Name)

	err = s.PutSource(ordersSource("Orders"))
	var dup *errorx.DuplicateNameError
	assert.True(t, errors.As(err, &dup))

	_, err = s.GetSource("nothere")
	code, ok := errorx.GetErrorCode(err)
	assert.True(t, ok)
	assert.Equal(t, errorx.UnknownSource, code)

	streams := s.ListSources(ast.TypeStream)
	require.Len(t, streams, 1)
	assert.Equal(t, "orders", streams[0].Name)
	assert.Len(t, s.ListSources(ast.TypeTable), 1)

	require.NoError(t, s.DropSource("orders"))
	_, err = s.GetSource("orders")
	assert.Error(t, err)
	assert.Error(t, s.DropSource("orders"))
}

func TestStore_PutSourceWithTopic(t *testing.T) {
	s := NewStore(newMirror(t))
	src := ordersSource("orders")
	require.NoError(t, s.PutSourceWithTopic(src, &Topic{Name: src.Topic, Format: "json", Partitions: 2}))

	tp, err := s.GetTopic("ORDERS_TOPIC")
	require.NoError(t, err)
	assert.Equal(t, 2, tp.Partitions)

	// the duplicate source leaves no new topic behind
	other := ordersSource("orders")
	other.Topic = "other_topic"
	err = s.PutSourceWithTopic(other, &Topic{Name: other.Topic, Format: "json", Partitions: 1})
	assert.Error(t, err)
	_, err = s.GetTopic("other_topic")
	assert.Error(t, err)

	// an existing topic fails the registration
	err = s.PutSourceWithTopic(ordersSource("orders2"), &Topic{Name: src.Topic, Format: "json", Partitions: 1})
	assert.Error(t, err)
	_, err = s.GetSource("orders2")
	assert.Error(t, err)

	require.NoError(t, s.DropTopic(src.Topic))
	assert.Error(t, s.DropTopic(src.Topic))
}

func TestLoad(t *testing.T) {
	mirror := newMirror(t)
	s := NewStore(mirror)
	src := ordersSource("orders")
	src.Query = "CSAS_ORDERS_0"
	require.NoError(t, s.PutSourceWithTopic(src, &Topic{Name: src.Topic, Format: "delimited", Partitions: 3}))
	require.NoError(t, s.PutSourceWithTopic(ordersSource("dropped"), &Topic{Name: "dropped_topic", Format: "json", Partitions: 1}))
	require.NoError(t, s.DropSource("dropped"))

	loaded, err := Load(mirror)
	require.NoError(t, err)
	got, err := loaded.GetSource("orders")
	require.NoError(t, err)
	assert.Equal(t, src.Name, got.Name)
	assert.Equal(t, src.Kind, got.Kind)
	assert.Equal(t, src.Topic, got.Topic)
	assert.Equal(t, src.TimestampColumn, got.TimestampColumn)
	assert.Equal(t, src.Query, got.Query)
	assert.True(t, src.Schema.Equal(got.Schema), got.Schema.String())

	_, err = loaded.GetSource("dropped")
	assert.Error(t, err)
	tp, err := loaded.GetTopic("dropped_topic")
	require.NoError(t, err)
	assert.Equal(t, "json", tp.Format)
	tp, err = loaded.GetTopic(src.Topic)
	require.NoError(t, err)
	assert.Equal(t, &Topic{Name: src.Topic, Format: "delimited", Partitions: 3}, tp)
}
