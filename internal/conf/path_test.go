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
)

func TestAbsolutePath(t *testing.T) {
	tests := []struct {
		r string
		a string
	}{
		{r: "etc/kql.yaml", a: "/etc/kql/kql.yaml"},
		{r: "data/", a: "/var/lib/kql/data/"},
		{r: logDir, a: "/var/log/kql"},
	}
	for i, tt := range tests {
		aa, err := absolutePath(tt.r)
		require.NoError(t, err)
		assert.Equal(t, tt.a, aa, "%d", i)
	}
	_, err := absolutePath("plugins")
	assert.EqualError(t, err, "location plugins is not allowed for absolute mode")
}

func TestRelativePath(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "etc"), 0o755))
	nested := filepath.Join(base, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	t.Setenv(KqlBaseKey, nested)
	d, err := GetConfLoc()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "etc"), d)

	_, err = GetLoc("nothere")
	assert.Error(t, err)
}
