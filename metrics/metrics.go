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

package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	LblType        = "type"
	LblStatusType  = "status"
	LblQueryIDType = "query"
	LblOpIDType    = "op"
	LblIOType      = "io"

	LblSourceIO  = "source"
	LblSinkIO    = "sink"
	LblException = "err"
	LblSuccess   = "success"
)

func GetStatusValue(err error) string {
	if err == nil {
		return LblSuccess
	}
	return LblException
}

var (
	QueryStatusCountGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "kql",
		Subsystem: "query",
		Name:      "count",
		Help:      "gauge of query count per state",
	}, []string{LblStatusType})

	QueryStatusGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "kql",
		Subsystem: "query",
		Name:      "status",
		Help:      "gauge of query state, 0 created, 1 running, 2 terminated, 3 failed",
	}, []string{LblQueryIDType})

	RecordsInCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kql",
		Subsystem: "node",
		Name:      "records_in_total",
		Help:      "counter of records received by a node",
	}, []string{LblQueryIDType, LblOpIDType})

	RecordsOutCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kql",
		Subsystem: "node",
		Name:      "records_out_total",
		Help:      "counter of records emitted by a node",
	}, []string{LblQueryIDType, LblOpIDType})

	DecodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kql",
		Subsystem: "node",
		Name:      "decode_errors_total",
		Help:      "counter of skipped records which cannot be decoded",
	}, []string{LblQueryIDType})

	LateRowCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kql",
		Subsystem: "node",
		Name:      "late_rows_total",
		Help:      "counter of rows dropped because all their windows expired",
	}, []string{LblQueryIDType})

	LogIOCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kql",
		Subsystem: "io",
		Name:      "log_count",
		Help:      "counter of log IO",
	}, []string{LblType, LblIOType, LblStatusType})

	LogIODurationHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kql",
		Subsystem: "io",
		Name:      "log_duration",
		Help:      "histogram of log IO in microseconds",
		Buckets:   prometheus.ExponentialBuckets(10, 2, 20),
	}, []string{LblType, LblIOType})
)

func init() {
	prometheus.MustRegister(QueryStatusCountGauge)
	prometheus.MustRegister(QueryStatusGauge)
	prometheus.MustRegister(RecordsInCounter)
	prometheus.MustRegister(RecordsOutCounter)
	prometheus.MustRegister(DecodeErrorCounter)
	prometheus.MustRegister(LateRowCounter)
	prometheus.MustRegister(LogIOCounter)
	prometheus.MustRegister(LogIODurationHist)
}

func SetQueryStatus(queryID string, value int) {
	QueryStatusGauge.WithLabelValues(queryID).Set(float64(value))
}

func RemoveQueryStatus(queryID string) {
	QueryStatusGauge.DeleteLabelValues(queryID)
	RecordsInCounter.DeletePartialMatch(prometheus.Labels{LblQueryIDType: queryID})
	RecordsOutCounter.DeletePartialMatch(prometheus.Labels{LblQueryIDType: queryID})
	DecodeErrorCounter.DeleteLabelValues(queryID)
	LateRowCounter.DeleteLabelValues(queryID)
}

// SetQueryStatusCount publishes the number of queries in each state.
func SetQueryStatusCount(counts map[string]int) {
	for state, n := range counts {
		QueryStatusCountGauge.WithLabelValues(state).Set(float64(n))
	}
}
