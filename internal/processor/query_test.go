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
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lf-edge/kql/internal/converter"
	"github.com/lf-edge/kql/internal/io/memory"
	"github.com/lf-edge/kql/internal/meta"
	"github.com/lf-edge/kql/internal/topo/rule"
	"github.com/lf-edge/kql/internal/topo/state"
	"github.com/lf-edge/kql/pkg/errorx"
	"github.com/lf-edge/kql/pkg/model"
)

const ordersDDL = `CREATE STREAM ORDERS (ORDERTIME BIGINT, ORDERID STRING, ITEMID STRING, ORDERUNITS DOUBLE,
	PRICEARRAY ARRAY<DOUBLE>, KEYVALUEMAP MAP<STRING, DOUBLE>)
	WITH (KAFKA_TOPIC='orders_topic', VALUE_FORMAT='JSON', KEY='ORDERTIME');`

var orderPrices = [][3]float64{
	{100.0, 110.99, 90.0},
	{10.0, 10.99, 9.0},
	{10.0, 10.99, 91.0},
	{10.0, 140.99, 94.0},
	{160.0, 160.99, 98.0},
	{1000.0, 1100.99, 900.0},
	{1100.0, 1110.99, 190.0},
	{1100.0, 1110.99, 970.0},
}

func setup(t *testing.T) (*QueryEngine, *memory.Log) {
	log := memory.NewLog()
	e := NewQueryEngine(meta.NewStore(nil), log, &Options{BufferLength: 16})
	_, err := e.Execute(context.Background(), ordersDDL)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e, log
}

// produceOrders appends the 8 sample orders keyed "1".."8".
func produceOrders(t *testing.T, log *memory.Log) {
	for i, prices := range orderPrices {
		n := i + 1
		orderID := n
		if n > 6 {
			orderID = 6
		}
		v := fmt.Sprintf(`{"ORDERTIME":%d,"ORDERID":"ORDER_%d","ITEMID":"ITEM_%d","ORDERUNITS":%d.0,"PRICEARRAY":[%v,%v,%v],"KEYVALUEMAP":{"key1":1.0,"key2":2.0,"key3":3.0}}`,
			n, orderID, n, n*10, prices[0], prices[1], prices[2])
		_, err := log.Append(context.Background(), "orders_topic", []byte(fmt.Sprint(n)), []byte(v))
		require.NoError(t, err)
	}
}

type result struct {
	key string
	row model.Row
}

// readResults waits for n records on the topic and decodes them.
func readResults(t *testing.T, log *memory.Log, q *PersistentQuery, n int) []result {
	topic := q.Output().Topic
	require.Eventually(t, func() bool {
		records, err := log.Records(topic)
		return err == nil && len(records) >= n
	}, 5*time.Second, 10*time.Millisecond)
	records, err := log.Records(topic)
	require.NoError(t, err)
	codec, err := converter.GetCodec("json")
	require.NoError(t, err)
	results := make([]result, 0, len(records))
	for _, r := range records {
		row, err := codec.Decode(r.Value, q.Output().Schema)
		require.NoError(t, err)
		results = append(results, result{key: string(r.Key), row: row})
	}
	return results
}

func compileAndStart(t *testing.T, e *QueryEngine, sql string) *PersistentQuery {
	q, err := e.Compile(context.Background(), sql)
	require.NoError(t, err)
	assert.Equal(t, rule.Created, q.State())
	require.NoError(t, e.Start(q))
	assert.Equal(t, rule.Running, q.State())
	return q
}

func TestSelectStar(t *testing.T) {
	e, log := setup(t)
	produceOrders(t, log)
	q := compileAndStart(t, e, "CREATE STREAM S AS SELECT * FROM ORDERS;")
	assert.Equal(t, "CSAS_S_0", q.ID)
	results := readResults(t, log, q, 8)
	require.Len(t, results, 8)
	orders, err := e.store.GetSource("ORDERS")
	require.NoError(t, err)
	assert.True(t, orders.Schema.Equal(q.Output().Schema))
	keys := make(map[string]model.Row)
	for _, r := range results {
		keys[r.key] = r.row
	}
	for i := 1; i <= 8; i++ {
		row, ok := keys[fmt.Sprint(i)]
		require.True(t, ok, "key %d", i)
		assert.Equal(t, fmt.Sprintf("ITEM_%d", i), row.Get(2).Str())
		assert.Equal(t, float64(i*10), row.Get(3).Float())
	}
}

func TestProjection(t *testing.T) {
	e, log := setup(t)
	produceOrders(t, log)
	q := compileAndStart(t, e, "CREATE STREAM S AS SELECT ITEMID, ORDERUNITS, PRICEARRAY FROM ORDERS;")
	results := readResults(t, log, q, 8)
	require.Len(t, results, 8)
	expected := model.NewRow(model.Str("ITEM_8"), model.Float(80), model.Array(model.DoubleType, model.Float(1100), model.Float(1110.99), model.Float(970)))
	byKey := make(map[string]model.Row)
	for _, r := range results {
		assert.Equal(t, 3, r.row.Len())
		byKey[r.key] = r.row
	}
	// the key column is projected away but the records keep the input keys
	for i := 1; i <= 8; i++ {
		row, ok := byKey[fmt.Sprint(i)]
		require.True(t, ok, "key %d", i)
		assert.Equal(t, fmt.Sprintf("ITEM_%d", i), row.Get(0).Str())
	}
	assert.True(t, expected.Equal(byKey["8"]), "got %s", byKey["8"])
}

func TestFilter(t *testing.T) {
	e, log := setup(t)
	produceOrders(t, log)
	q := compileAndStart(t, e, "CREATE STREAM S AS SELECT * FROM ORDERS WHERE ORDERUNITS > 20 AND ITEMID = 'ITEM_8';")
	readResults(t, log, q, 1)
	time.Sleep(100 * time.Millisecond)
	results := readResults(t, log, q, 1)
	require.Len(t, results, 1)
	assert.Equal(t, "8", results[0].key)
	assert.Equal(t, "ORDER_6", results[0].row.Get(1).Str())
}

func TestExpressions(t *testing.T) {
	e, log := setup(t)
	produceOrders(t, log)
	q := compileAndStart(t, e, "CREATE STREAM S AS SELECT ITEMID, ORDERUNITS*10, PRICEARRAY[0]+10, KEYVALUEMAP['key1']*KEYVALUEMAP['key2']+10, PRICEARRAY[1]>1000 FROM ORDERS WHERE ORDERUNITS > 20 AND ITEMID LIKE '%_8';")
	readResults(t, log, q, 1)
	time.Sleep(100 * time.Millisecond)
	results := readResults(t, log, q, 1)
	require.Len(t, results, 1)
	expected := model.NewRow(model.Str("ITEM_8"), model.Float(800), model.Float(1110), model.Float(12), model.Bool(true))
	assert.True(t, expected.Equal(results[0].row), "got %s", results[0].row)
	assert.Equal(t, "8", results[0].key)
	assert.Equal(t, int64(1), q.Appended())
}

func TestAggregateSumCount(t *testing.T) {
	e, log := setup(t)
	produceOrders(t, log)
	q := compileAndStart(t, e, "CREATE STREAM AGGSTREAM AS SELECT ITEMID, COUNT(ITEMID), SUM(ORDERUNITS), SUM(ORDERUNITS)/COUNT(ORDERUNITS), SUM(PRICEARRAY[0]+10) FROM ORDERS WINDOW TUMBLING (SIZE 100 MILLISECOND) WHERE ORDERUNITS > 60 GROUP BY ITEMID HAVING SUM(ORDERUNITS) > 130;")
	// the second batch lands in the same window as the mock clock does not move
	produceOrders(t, log)
	readResults(t, log, q, 2)
	time.Sleep(100 * time.Millisecond)
	results := readResults(t, log, q, 2)
	require.Len(t, results, 2)
	expected := map[string]model.Row{
		"ITEM_7": model.NewRow(model.Str("ITEM_7"), model.Int(2), model.Float(140), model.Float(70), model.Float(2220)),
		"ITEM_8": model.NewRow(model.Str("ITEM_8"), model.Int(2), model.Float(160), model.Float(80), model.Float(2220)),
	}
	for _, r := range results {
		key, start, err := state.DecodeWindowedKey([]byte(r.key))
		require.NoError(t, err)
		assert.Equal(t, int64(0), start)
		exp, ok := expected[string(key)]
		require.True(t, ok, string(key))
		assert.True(t, exp.Equal(r.row), "expect %s but got %s", exp, r.row)
	}
}

func TestTerminateStopsEmissions(t *testing.T) {
	e, log := setup(t)
	produceOrders(t, log)
	q := compileAndStart(t, e, "CREATE STREAM S AS SELECT * FROM ORDERS;")
	readResults(t, log, q, 8)
	require.NoError(t, e.Terminate(q.ID, false))
	assert.Equal(t, rule.Terminated, q.State())
	produceOrders(t, log)
	time.Sleep(100 * time.Millisecond)
	records, err := log.Records("S")
	require.NoError(t, err)
	assert.Len(t, records, 8)
	// terminated queries stay listable until cleaned up
	_, ok := e.Get(q.ID)
	assert.True(t, ok)
	require.NoError(t, e.Terminate(q.ID, false))
	assert.ErrorIs(t, e.Start(q), ErrAlreadyStarted)

	require.NoError(t, e.Terminate(q.ID, true))
	_, ok = e.Get(q.ID)
	assert.False(t, ok)
	_, err = e.store.GetSource("S")
	assert.Error(t, err)
	_, err = e.store.GetTopic("S")
	assert.Error(t, err)
	require.NoError(t, e.Terminate("CSAS_NONE_9", true))
}

func TestTerminateKeepsStreamWithReaders(t *testing.T) {
	e, log := setup(t)
	produceOrders(t, log)
	first := compileAndStart(t, e, "CREATE STREAM BIG AS SELECT * FROM ORDERS WHERE ORDERUNITS > 50;")
	second := compileAndStart(t, e, "CREATE STREAM BIGGER AS SELECT * FROM BIG WHERE ORDERUNITS > 70;")
	readResults(t, log, second, 1)

	require.NoError(t, e.Terminate(first.ID, true))
	_, ok := e.Get(first.ID)
	assert.False(t, ok)
	// BIG is still read by the second query
	_, err := e.store.GetSource("BIG")
	assert.NoError(t, err)
	_, err = e.store.GetTopic("BIG")
	assert.NoError(t, err)
	assert.Equal(t, rule.Running, second.State())

	require.NoError(t, e.Terminate(second.ID, true))
	_, err = e.store.GetSource("BIGGER")
	assert.Error(t, err)
	_, err = e.Execute(context.Background(), "DROP STREAM BIG;")
	assert.NoError(t, err)
}

func TestCompileErrors(t *testing.T) {
	e, _ := setup(t)
	tests := []struct {
		sql   string
		cause any
	}{
		{"CREATE STREAM S AS SELECT * FROM NOPE", new(*errorx.UnknownSourceError)},
		{"CREATE STREAM ORDERS AS SELECT * FROM ORDERS", new(*errorx.DuplicateNameError)},
		{"CREATE STREAM S AS SELECT NOPE FROM ORDERS", new(*errorx.UnknownColumnError)},
		{"CREATE STREAM S AS SELECT FOO(ITEMID) FROM ORDERS", new(*errorx.UnknownFunctionError)},
		{"CREATE STREAM S AS SELECT ITEMID + 1 FROM ORDERS", new(*errorx.TypeMismatchError)},
		{"CREATE STREAM S AS SELECT ITEMID FROM ORDERS HAVING ORDERUNITS > 1", new(*errorx.InvalidStatementError)},
		{"SHOW STREAMS", new(*errorx.InvalidStatementError)},
	}
	for i, tt := range tests {
		_, err := e.Compile(context.Background(), tt.sql)
		require.Error(t, err, "%d", i)
		var ce *errorx.CompileError
		assert.True(t, errors.As(err, &ce), "%d: %v", i, err)
		assert.True(t, errors.As(err, tt.cause), "%d: %v", i, err)
	}
	_, err := e.Compile(context.Background(), "CREATE STREAM S AS SELECT FROM")
	var ce *errorx.CompileError
	assert.True(t, errors.As(err, &ce))
	code, _ := errorx.GetErrorCode(err)
	assert.Equal(t, errorx.CompileErr, code)

	_, err = e.store.GetSource("S")
	assert.Error(t, err)
	assert.Empty(t, e.List())
	// ids are only consumed by successful compiles
	q, err := e.Compile(context.Background(), "CREATE STREAM S AS SELECT * FROM ORDERS")
	require.NoError(t, err)
	assert.Equal(t, "CSAS_S_0", q.ID)
}

func TestQueryFails(t *testing.T) {
	e, log := setup(t)
	e.opts.SinkRetry.Attempts = 0
	q := compileAndStart(t, e, "CREATE STREAM S AS SELECT * FROM ORDERS;")
	require.NoError(t, log.DeleteTopic(context.Background(), "S"))
	produceOrders(t, log)
	q.Wait()
	assert.Equal(t, rule.Failed, q.State())
	assert.Contains(t, q.Status().Message, "topic S is not found")
	list := e.List()
	require.Len(t, list, 1)
	assert.Equal(t, q.ID, list[0].ID)
	require.NoError(t, e.Terminate(q.ID, false))
	assert.Equal(t, rule.Failed, q.State())
}

func TestExplainAndTopo(t *testing.T) {
	e, _ := setup(t)
	q, err := e.Compile(context.Background(), "CREATE STREAM S AS SELECT ITEMID FROM ORDERS WHERE ORDERUNITS > 1")
	require.NoError(t, err)
	assert.Contains(t, q.Explain(), "Filter: ")
	assert.Equal(t, []string{"source_ORDERS"}, q.Topo().Sources)
	assert.Equal(t, "ORDERS", q.Source)
	assert.Equal(t, "S", q.Sink)
	assert.Equal(t, "CREATE STREAM S AS SELECT ITEMID FROM ORDERS WHERE ORDERUNITS > 1", q.Statement)
}
