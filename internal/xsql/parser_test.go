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

package xsql

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lf-edge/kql/internal/testx"
	"github.com/lf-edge/kql/pkg/ast"
	"github.com/lf-edge/kql/pkg/errorx"
)

func TestParser_ParseExpr(t *testing.T) {
	tests := []struct {
		s   string
		exp string
		err string
	}{
		{s: "a + b * c", exp: "(A + (B * C))"},
		{s: "a * b + c", exp: "((A * B) + C)"},
		{s: "a - b - c", exp: "((A - B) - C)"},
		{s: "(a + b) * c", exp: "((A + B) * C)"},
		{s: "a = 1 AND b = 2 OR c", exp: "(((A = 1) AND (B = 2)) OR C)"},
		{s: "a OR b AND c", exp: "(A OR (B AND C))"},
		{s: "NOT a = 1 AND b", exp: "((NOT (A = 1)) AND B)"},
		{s: "a IS NOT NULL AND b IS NULL", exp: "((A IS NOT NULL) AND (B IS NULL))"},
		{s: "a + 1 IS NULL", exp: "((A + 1) IS NULL)"},
		{s: "itemId NOT LIKE '%_8'", exp: "(ITEMID NOT LIKE '%_8')"},
		{s: "orderUnits > 20 AND itemId LIKE '%_8'", exp: "((ORDERUNITS > 20) AND (ITEMID LIKE '%_8'))"},
		{s: "arr[0][1] + m['k']", exp: "(ARR[0][1] + M['k'])"},
		{s: "-a * 2", exp: "((-A) * 2)"},
		{s: "a <> 1.5", exp: "(A <> 1.5)"},
		{s: "a != b", exp: "(A <> B)"},
		{s: "count(*)", exp: "COUNT(*)"},
		{s: "concat(a, 'x''y')", exp: "CONCAT(A, 'x''y')"},
		{s: "`my col` = \"other\"", exp: "(MY COL = OTHER)"},
		{s: "a /* note */ + b -- tail", exp: "(A + B)"},
		{s: "a +", err: "parse right operand of +: found EOF, expected expression."},
		{s: "(a", err: `found "", expected right paren.`},
		{s: "a NOT b", err: `found "b", expected LIKE after NOT.`},
		{s: "a IS 1", err: `found "1", expected NULL.`},
		{s: "a b", err: `found "b", expected EOF.`},
		{s: "'abc", err: `found unterminated string "abc".`},
	}
	for i, tt := range tests {
		expr, err := ParseExpr(tt.s)
		if !assert.Equal(t, tt.err, testx.Errstring(err), "%d. %q", i, tt.s) {
			continue
		}
		if tt.err == "" {
			assert.Equal(t, tt.exp, expr.String(), "%d. %q", i, tt.s)
		}
	}
}

func TestParser_ParseCreateAsSelect(t *testing.T) {
	sql := "CREATE STREAM s AS SELECT itemid, orderunits * 10 AS units, priceArray[0] + 10 FROM orders WHERE orderunits > 20;"
	stmt, err := Parse(sql)
	require.NoError(t, err)
	exp := &ast.CreateStreamAsSelect{
		Name:    "s",
		Options: &ast.Options{},
		Select: &ast.SelectStatement{
			Fields: ast.Fields{
				{Name: "itemid", Expr: &ast.FieldRef{Name: "itemid"}},
				{
					Name:  "units",
					AName: "units",
					Expr:  &ast.BinaryExpr{OP: ast.MUL, LHS: &ast.FieldRef{Name: "orderunits"}, RHS: &ast.IntegerLiteral{Val: 10}},
				},
				{
					Name: "KSQL_COL_2",
					Expr: &ast.BinaryExpr{
						OP:  ast.ADD,
						LHS: &ast.IndexExpr{Expr: &ast.FieldRef{Name: "priceArray"}, Index: &ast.IntegerLiteral{Val: 0}},
						RHS: &ast.IntegerLiteral{Val: 10},
					},
				},
			},
			Source:    "orders",
			Condition: &ast.BinaryExpr{OP: ast.GT, LHS: &ast.FieldRef{Name: "orderunits"}, RHS: &ast.IntegerLiteral{Val: 20}},
		},
		Text: strings.TrimSuffix(sql, ";"),
	}
	assert.Equal(t, exp, stmt)
}

func TestParser_ParseWindow(t *testing.T) {
	tests := []struct {
		s   string
		w   *ast.Window
		err string
	}{
		{
			s: "SELECT itemid, COUNT(*) FROM s WINDOW TUMBLING (SIZE 100 MILLISECONDS) WHERE a > 1 GROUP BY itemid",
			w: &ast.Window{WindowType: ast.TUMBLING_WINDOW, Length: 100 * time.Millisecond},
		},
		{
			s: "SELECT itemid, COUNT(*) FROM s WHERE a > 1 WINDOW TUMBLING (SIZE 100 MILLISECOND) GROUP BY itemid",
			w: &ast.Window{WindowType: ast.TUMBLING_WINDOW, Length: 100 * time.Millisecond},
		},
		{
			s: "SELECT itemid, COUNT(*) FROM s WINDOW hopping (size 1 minute, advance by 10 seconds) GROUP BY itemid",
			w: &ast.Window{WindowType: ast.HOPPING_WINDOW, Length: time.Minute, Interval: 10 * time.Second},
		},
		{
			s: "SELECT itemid, COUNT(*) FROM s WINDOW TUMBLING (SIZE 2 HOURS) GROUP BY itemid",
			w: &ast.Window{WindowType: ast.TUMBLING_WINDOW, Length: 2 * time.Hour},
		},
		{
			s:   "SELECT a FROM s WINDOW SESSION (SIZE 1 SECOND) GROUP BY a",
			err: "invalid statement: SESSION window is not supported",
		},
		{
			s:   "SELECT a FROM s WINDOW HOPPING (SIZE 1 SECOND, ADVANCE BY 2 SECONDS) GROUP BY a",
			err: "invalid statement: window advance 2s must not be larger than the size 1s",
		},
		{
			s:   "SELECT a FROM s WINDOW TUMBLING (SIZE 0 SECOND) GROUP BY a",
			err: "invalid statement: window size must be a positive integer, but got 0",
		},
		{
			s:   "SELECT a FROM s WINDOW TUMBLING (SIZE 1 WEEK) GROUP BY a",
			err: `found "WEEK", expected time unit.`,
		},
		{
			s:   "SELECT a FROM s WINDOW TUMBLING (SIZE 1 SECOND) WHERE a > 1 WINDOW TUMBLING (SIZE 2 SECONDS) GROUP BY a",
			err: "invalid statement: duplicate WINDOW clause",
		},
	}
	for i, tt := range tests {
		stmt, err := Parse(tt.s)
		if !assert.Equal(t, tt.err, testx.Errstring(err), "%d. %q", i, tt.s) {
			continue
		}
		if tt.err == "" {
			sel, ok := stmt.(*ast.SelectStatement)
			require.True(t, ok)
			assert.Equal(t, tt.w, sel.Window, "%d. %q", i, tt.s)
			assert.Len(t, sel.Dimensions, 1)
		}
	}
}

func TestParser_ParseDDL(t *testing.T) {
	tests := []struct {
		s    string
		stmt ast.Statement
		err  string
	}{
		{
			s: "CREATE STREAM orders (orderTime BIGINT, itemId STRING, priceArray ARRAY<DOUBLE>, kv MAP<STRING, DOUBLE>) WITH (KAFKA_TOPIC='orders_topic', VALUE_FORMAT='json', KEY='itemId', PARTITIONS=2)",
			stmt: &ast.StreamStmt{
				Name:       "orders",
				StreamType: ast.TypeStream,
				Columns: []ast.ColumnDef{
					{Name: "orderTime", Type: "BIGINT"},
					{Name: "itemId", Type: "STRING"},
					{Name: "priceArray", Type: "ARRAY<DOUBLE>"},
					{Name: "kv", Type: "MAP<STRING,DOUBLE>"},
				},
				Options: &ast.Options{KAFKA_TOPIC: "orders_topic", VALUE_FORMAT: "json", KEY: "itemId", PARTITIONS: 2},
			},
		},
		{
			s: "CREATE TABLE users (id STRING, nested ARRAY<MAP<STRING, BIGINT>>) WITH (KAFKA_TOPIC='users')",
			stmt: &ast.StreamStmt{
				Name:       "users",
				StreamType: ast.TypeTable,
				Columns: []ast.ColumnDef{
					{Name: "id", Type: "STRING"},
					{Name: "nested", Type: "ARRAY<MAP<STRING,BIGINT>>"},
				},
				Options: &ast.Options{KAFKA_TOPIC: "users"},
			},
		},
		{
			s: "CREATE STREAM s WITH (KAFKA_TOPIC='out', PARTITIONS=4) AS SELECT * FROM orders",
			stmt: &ast.CreateStreamAsSelect{
				Name:    "s",
				Options: &ast.Options{KAFKA_TOPIC: "out", PARTITIONS: 4},
				Select: &ast.SelectStatement{
					Fields: ast.Fields{{Expr: &ast.Wildcard{Token: ast.ASTERISK}}},
					Source: "orders",
				},
				Text: "CREATE STREAM s WITH (KAFKA_TOPIC='out', PARTITIONS=4) AS SELECT * FROM orders",
			},
		},
		{s: "DROP STREAM orders", stmt: &ast.DropStreamStatement{Name: "orders", StreamType: ast.TypeStream}},
		{s: "drop table users;", stmt: &ast.DropStreamStatement{Name: "users", StreamType: ast.TypeTable}},
		{s: "SHOW QUERIES", stmt: &ast.ShowStatement{What: ast.QUERIES}},
		{s: "SHOW STREAMS", stmt: &ast.ShowStatement{What: ast.STREAMS}},
		{s: "DESCRIBE orders", stmt: &ast.DescribeStatement{Name: "orders"}},
		{s: "DESCRIBE STREAM orders", stmt: &ast.DescribeStatement{Name: "orders"}},
		{s: "TERMINATE CSAS_S_1", stmt: &ast.TerminateStatement{QueryID: "CSAS_S_1"}},
		{
			s:   "CREATE TABLE t AS SELECT * FROM s",
			err: "invalid statement: CREATE TABLE AS SELECT is not supported, use CREATE STREAM AS SELECT",
		},
		{s: "CREATE STREAM s (a BIGINT) WITH (FOO='x')", err: "unknown property FOO"},
		{s: "CREATE STREAM s (a BIGINT) WITH (PARTITIONS='x')", err: "property PARTITIONS expects a positive integer, but got 'x'"},
		{s: "CREATE STREAM s (a) WITH (KAFKA_TOPIC='x')", err: "missing type of column a."},
		{s: "CREATE STREAM s (a MAP<STRING, BIGINT) WITH (KAFKA_TOPIC='x')", err: "found EOF, expected type of column a."},
		{s: "DROP STREAM", err: `found "", expected stream name.`},
		{s: "SHOW FUNCTIONS", err: `found "FUNCTIONS", expected keyword streams, tables or queries.`},
		{s: "UPDATE s", err: `found "UPDATE", expected CREATE, DROP, SHOW, DESCRIBE or TERMINATE.`},
		{s: "SELECT a s", err: `found "s", expected FROM.`},
		{s: "SELECT a FROM s t", err: `found "t", expected semicolon or EOF.`},
	}
	for i, tt := range tests {
		stmt, err := Parse(tt.s)
		if !assert.Equal(t, tt.err, testx.Errstring(err), "%d. %q", i, tt.s) {
			continue
		}
		if tt.err == "" {
			assert.Equal(t, tt.stmt, stmt, "%d. %q", i, tt.s)
		}
	}
}

func TestParseStatements(t *testing.T) {
	sql := `CREATE STREAM a AS SELECT * FROM s;
	-- derived from a
	CREATE STREAM b AS SELECT x FROM a WHERE x > 1;
	SHOW QUERIES`
	stmts, err := ParseStatements(sql)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Equal(t, "CREATE STREAM a AS SELECT * FROM s", stmts[0].(*ast.CreateStreamAsSelect).Text)
	assert.Equal(t, "CREATE STREAM b AS SELECT x FROM a WHERE x > 1", stmts[1].(*ast.CreateStreamAsSelect).Text)
	assert.Equal(t, &ast.ShowStatement{What: ast.QUERIES}, stmts[2])

	_, err = Parse("SHOW STREAMS; SHOW TABLES")
	assert.EqualError(t, err, "expect one statement but found 2")

	_, err = ParseStatements("SELECT FROM")
	code, ok := errorx.GetErrorCode(err)
	require.True(t, ok)
	assert.Equal(t, errorx.ParserError, code)
}
