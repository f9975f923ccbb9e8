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

package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lf-edge/kql/pkg/kv"
)

const testYaml = `
basic:
  debug: true
  restPort: 9090
log:
  type: kafka
  partitions: 4
  kafka:
    brokers: [localhost:9092]
store:
  type: sqlite
  sqlite:
    path: /tmp/kql
engine:
  grace: 500
  sinkRetry:
    attempts: 5
`

func writeConf(t *testing.T, content string) string {
	p := filepath.Join(t.TempDir(), ConfFileName)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadConf(t *testing.T) {
	p := writeConf(t, testYaml)
	t.Setenv("KQL__BASIC__RESTPORT", "9999")
	t.Setenv("KQL__STORE__REDIS__PASSWORD", "secret")
	c, err := LoadConf(p)
	require.NoError(t, err)
	assert.True(t, c.Basic.Debug)
	assert.Equal(t, 9999, c.Basic.RestPort)
	assert.Equal(t, "kafka", c.Log.Type)
	assert.Equal(t, 4, c.Log.Partitions)
	assert.Equal(t, []string{"localhost:9092"}, c.Log.Kafka.Brokers)
	// untouched defaults survive
	assert.Equal(t, -1, c.Log.Kafka.RequiredAcks)
	assert.Equal(t, kv.Config{Type: "sqlite", Sqlite: kv.SqliteConfig{Path: "/tmp/kql"}, Redis: kv.RedisConfig{Password: "secret"}}, c.Store)
	assert.Equal(t, 500, c.Engine.Grace)
	assert.Equal(t, RetryConf{Attempts: 5, Delay: 100, MaxDelay: 5000}, c.Engine.SinkRetry)
	assert.Equal(t, 1024, c.Engine.BufferLength)
	assert.Equal(t, "json", c.Engine.DefaultFormat)
}

func TestLoadConfMissing(t *testing.T) {
	_, err := LoadConf(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *KqlConf)
		check  func(t *testing.T, c *KqlConf)
		err    bool
	}{
		{
			name:   "default",
			modify: func(c *KqlConf) {},
			check:  func(t *testing.T, c *KqlConf) { assert.Equal(t, defaultConf(), *c) },
		},
		{
			name:   "bad port",
			modify: func(c *KqlConf) { c.Basic.RestPort = 70000 },
			check:  func(t *testing.T, c *KqlConf) { assert.Equal(t, 9081, c.Basic.RestPort) },
			err:    true,
		},
		{
			name:   "bad log type",
			modify: func(c *KqlConf) { c.Log.Type = "pulsar" },
			check:  func(t *testing.T, c *KqlConf) { assert.Equal(t, "memory", c.Log.Type) },
			err:    true,
		},
		{
			name:   "kafka without brokers",
			modify: func(c *KqlConf) { c.Log.Type = "kafka" },
			check:  func(t *testing.T, c *KqlConf) { assert.Equal(t, "kafka", c.Log.Type) },
			err:    true,
		},
		{
			name: "engine",
			modify: func(c *KqlConf) {
				c.Engine.BufferLength = 0
				c.Engine.Grace = -1
				c.Engine.SinkRetry = RetryConf{Attempts: -1, Delay: 0, MaxDelay: 10}
			},
			check: func(t *testing.T, c *KqlConf) {
				assert.Equal(t, 1024, c.Engine.BufferLength)
				assert.Equal(t, 0, c.Engine.Grace)
				assert.Equal(t, RetryConf{Attempts: 0, Delay: 100, MaxDelay: 100}, c.Engine.SinkRetry)
			},
			err: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaultConf()
			tt.modify(&c)
			err := c.Validate()
			if tt.err {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			tt.check(t, &c)
		})
	}
}

func TestGetValueType(t *testing.T) {
	assert.Equal(t, int64(3), getValueType("3"))
	assert.Equal(t, true, getValueType("true"))
	assert.Equal(t, 1.5, getValueType("1.5"))
	assert.Equal(t, "abc", getValueType(" abc "))
	assert.Equal(t, []interface{}{int64(1), "b"}, getValueType("[1,b]"))
}
