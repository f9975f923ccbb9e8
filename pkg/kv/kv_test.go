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

package kv

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lf-edge/kql/pkg/errorx"
)

type sourceDef struct {
	Name    string
	Columns []string
	Key     int
}

func testKvSetnx(t *testing.T, ks KeyValue) {
	require.NoError(t, ks.Setnx("foo", "bar"))
	assert.EqualError(t, ks.Setnx("foo", "bar1"), "key foo already exists")
	var v string
	ok, err := ks.Get("foo", &v)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bar", v)
}

func testKvSet(t *testing.T, ks KeyValue) {
	require.NoError(t, ks.Set("foo", "bar"))
	require.NoError(t, ks.Set("foo", "bar1"))
	var v string
	ok, err := ks.Get("foo", &v)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bar1", v)
}

func testKvGetStruct(t *testing.T, ks KeyValue) {
	exp := sourceDef{Name: "ORDERS", Columns: []string{"A BIGINT", "B STRING"}, Key: 1}
	require.NoError(t, ks.Setnx("ORDERS", exp))
	var got sourceDef
	ok, err := ks.Get("ORDERS", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, exp, got)

	ok, err = ks.Get("NOPE", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testKvKeysDelete(t *testing.T, ks KeyValue) {
	var expected []string
	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("key-%d", i)
		require.NoError(t, ks.Setnx(key, fmt.Sprintf("value-%d", i)))
		expected = append(expected, key)
	}
	keys, err := ks.Keys()
	require.NoError(t, err)
	assert.Equal(t, expected, keys)

	require.NoError(t, ks.Delete("key-0"))
	err = ks.Delete("key-0")
	code, ok := errorx.GetErrorCode(err)
	require.True(t, ok)
	assert.Equal(t, errorx.NOT_FOUND, code)

	require.NoError(t, ks.Clean())
	keys, err = ks.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func runSuite(t *testing.T, builder StoreBuilder) {
	suites := []struct {
		name string
		f    func(*testing.T, KeyValue)
	}{
		{"setnx", testKvSetnx},
		{"set", testKvSet},
		{"getStruct", testKvGetStruct},
		{"keysDelete", testKvKeysDelete},
	}
	for _, s := range suites {
		t.Run(s.name, func(t *testing.T) {
			ks, err := builder.CreateStore("test_" + s.name)
			require.NoError(t, err)
			defer ks.Drop()
			s.f(t, ks)
		})
	}
}

func TestMemoryKv(t *testing.T) {
	b, err := NewStoreBuilder(Config{Type: "memory"})
	require.NoError(t, err)
	defer b.Close()
	runSuite(t, b)
}

func TestSqliteKv(t *testing.T) {
	b, err := NewStoreBuilder(Config{Type: "sqlite", Sqlite: SqliteConfig{Path: t.TempDir()}})
	require.NoError(t, err)
	defer b.Close()
	runSuite(t, b)

	_, err = b.CreateStore("bad name;")
	assert.EqualError(t, err, "invalid table name bad name;")
}

func TestRedisKv(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	b, err := NewStoreBuilder(Config{Type: "redis", Redis: RedisConfig{Host: mr.Host(), Port: port}})
	require.NoError(t, err)
	defer b.Close()
	runSuite(t, b)
}

func TestUnknownStore(t *testing.T) {
	_, err := NewStoreBuilder(Config{Type: "fdb"})
	assert.EqualError(t, err, "unknown database type: fdb")
}
