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

package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lf-edge/kql/internal/io/memory"
	"github.com/lf-edge/kql/internal/meta"
	"github.com/lf-edge/kql/pkg/errorx"
	"github.com/lf-edge/kql/pkg/kv"
)

func TestExecStmt(t *testing.T) {
	ctx := context.Background()
	mirror, err := kv.NewMemoryStoreBuilder().CreateStore("registry")
	require.NoError(t, err)
	log := memory.NewLog()
	e := NewQueryEngine(meta.NewStore(mirror), log, &Options{DefaultPartitions: 2})
	defer e.Close()

	tests := []struct {
		s string
		r string
		e string
	}{
		{
			s: "SHOW STREAMS",
			r: "No stream definitions are found.",
		},
		{
			s: `CREATE STREAM ORDERS (ORDERTIME BIGINT, ITEMID STRING, ORDERUNITS DOUBLE) WITH (KAFKA_TOPIC='orders_topic', KEY='ITEMID', TIMESTAMP='ORDERTIME')`,
			r: "Stream ORDERS is created.",
		},
		{
			s: `CREATE STREAM ORDERS (A BIGINT) WITH (KAFKA_TOPIC='other')`,
			e: "create stream fails: stream ORDERS already exists",
		},
		{
			s: `CREATE TABLE ITEMS (ITEMID STRING, NAME STRING) WITH (KAFKA_TOPIC='items', VALUE_FORMAT='delimited', KEY='ITEMID')`,
			r: "Table ITEMS is created.",
		},
		{
			s: `CREATE STREAM ORDERS2 (A BIGINT) WITH (KAFKA_TOPIC='orders_topic', VALUE_FORMAT='cbor')`,
			e: "create stream fails: invalid statement: topic orders_topic is registered with format json but got cbor",
		},
		{
			s: `CREATE STREAM BAD (A BIGINT) WITH (TIMESTAMP='B')`,
			e: "create stream fails: unknown column B",
		},
		{
			s: `CREATE STREAM BAD (A STRING) WITH (TIMESTAMP='A')`,
			e: "create stream fails: type mismatch: TIMESTAMP column A must be BIGINT but got STRING",
		},
		{
			s: `CREATE STREAM BAD (A STRING) WITH (VALUE_FORMAT='avro')`,
			e: "create stream fails: invalid statement: VALUE_FORMAT avro is not supported",
		},
		{
			s: "SHOW STREAMS",
			r: "ORDERS\torders_topic\tjson",
		},
		{
			s: "SHOW TABLES",
			r: "ITEMS\titems\tdelimited",
		},
		{
			s: "DESCRIBE ORDERS",
			r: "Name: ORDERS\nType: stream\nTopic: orders_topic\nTimestamp: ORDERTIME\nFields\nORDERTIME\tBIGINT\nITEMID\tSTRING (key)\nORDERUNITS\tDOUBLE",
		},
		{
			s: "SHOW QUERIES",
			r: "No queries are found.",
		},
		{
			s: "CREATE STREAM BIG AS SELECT ITEMID, ORDERUNITS FROM ORDERS WHERE ORDERUNITS > 100",
			r: "Stream BIG is created and running persistent query CSAS_BIG_0.",
		},
		{
			s: "SHOW QUERIES",
			r: "CSAS_BIG_0\trunning\tBIG\tCREATE STREAM BIG AS SELECT ITEMID, ORDERUNITS FROM ORDERS WHERE ORDERUNITS > 100",
		},
		{
			s: "DESCRIBE BIG",
			r: "Name: BIG\nType: stream\nTopic: BIG\nQuery: CSAS_BIG_0\nFields\nITEMID\tSTRING (key)\nORDERUNITS\tDOUBLE",
		},
		{
			s: "DROP STREAM BIG",
			e: "invalid statement: cannot drop stream BIG, query CSAS_BIG_0 is writing to it, terminate it first",
		},
		{
			s: "DROP STREAM ORDERS",
			e: "invalid statement: cannot drop stream ORDERS, query CSAS_BIG_0 is reading from it, terminate it first",
		},
		{
			s: "DROP TABLE ORDERS",
			e: "invalid statement: ORDERS is a stream, not a table",
		},
		{
			s: "TERMINATE CSAS_NOPE_1",
			e: "query CSAS_NOPE_1 is not found",
		},
		{
			s: "TERMINATE csas_big_0",
			r: "Query CSAS_BIG_0 is terminated.",
		},
		{
			s: "SHOW QUERIES",
			r: "CSAS_BIG_0\tterminated\tBIG\tCREATE STREAM BIG AS SELECT ITEMID, ORDERUNITS FROM ORDERS WHERE ORDERUNITS > 100",
		},
		{
			s: "DROP STREAM BIG",
			r: "Stream BIG is dropped.",
		},
		{
			s: "DROP STREAM ORDERS",
			r: "Stream ORDERS is dropped.",
		},
		{
			s: "DROP STREAM ORDERS",
			e: "source ORDERS is not found",
		},
		{
			s: "DESCRIBE ORDERS",
			e: "source ORDERS is not found",
		},
	}
	for i, tt := range tests {
		r, err := e.Execute(ctx, tt.s)
		if tt.e != "" {
			require.Error(t, err, "%d: %s", i, tt.s)
			assert.Equal(t, tt.e, err.Error(), "%d: %s", i, tt.s)
			continue
		}
		require.NoError(t, err, "%d: %s", i, tt.s)
		assert.Equal(t, tt.r, r, "%d: %s", i, tt.s)
	}

	// the DDL created the topics in the log
	_, err = log.Records("orders_topic")
	assert.NoError(t, err)
	_, err = log.Records("items")
	assert.NoError(t, err)

	// the registry survives a reload from its mirror
	reloaded, err := meta.Load(mirror)
	require.NoError(t, err)
	items, err := reloaded.GetSource("ITEMS")
	require.NoError(t, err)
	topic, err := reloaded.GetTopic(items.Topic)
	require.NoError(t, err)
	assert.Equal(t, &meta.Topic{Name: "items", Format: "delimited", Partitions: 2}, topic)
}

func TestExecuteAll(t *testing.T) {
	e := NewQueryEngine(meta.NewStore(nil), memory.NewLog(), nil)
	defer e.Close()
	r, err := e.ExecuteAll(context.Background(), `
		CREATE STREAM A (X BIGINT) WITH (KAFKA_TOPIC='a');
		CREATE STREAM B AS SELECT X * 2 AS Y FROM A;
		CREATE STREAM A (X BIGINT) WITH (KAFKA_TOPIC='a');
		SHOW STREAMS;`)
	require.Error(t, err)
	var dup *errorx.DuplicateNameError
	assert.True(t, errors.As(err, &dup))
	assert.Equal(t, []string{
		"Stream A is created.",
		"Stream B is created and running persistent query CSAS_B_0.",
	}, r)

	_, err = e.ExecuteAll(context.Background(), "SHOW STREAMS; SHOW")
	code, ok := errorx.GetErrorCode(err)
	assert.True(t, ok)
	assert.Equal(t, errorx.ParserError, code)
}
