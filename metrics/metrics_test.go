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

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestQueryStatus(t *testing.T) {
	SetQueryStatus("CSAS_A_0", 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(QueryStatusGauge.WithLabelValues("CSAS_A_0")))
	RecordsInCounter.WithLabelValues("CSAS_A_0", "source").Add(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(RecordsInCounter.WithLabelValues("CSAS_A_0", "source")))
	RemoveQueryStatus("CSAS_A_0")
	assert.Equal(t, 0, testutil.CollectAndCount(RecordsInCounter))

	SetQueryStatusCount(map[string]int{"running": 2, "failed": 1})
	assert.Equal(t, float64(2), testutil.ToFloat64(QueryStatusCountGauge.WithLabelValues("running")))
}

func TestGetStatusValue(t *testing.T) {
	assert.Equal(t, LblSuccess, GetStatusValue(nil))
	assert.Equal(t, LblException, GetStatusValue(errors.New("x")))
}
