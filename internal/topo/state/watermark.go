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

package state

import "math"

// Watermark tracks the maximum event time of every partition of the input
// topic. The watermark is the minimum of those maxima and does not exist until
// every partition has delivered a row, so a lagging partition always holds it
// back.
type Watermark struct {
	partitions     int
	maxByPartition map[int]int64
}

// NewWatermark creates a watermark over the given number of partitions. With
// zero partitions the watermark only covers the partitions seen so far.
func NewWatermark(partitions int) *Watermark {
	return &Watermark{partitions: partitions, maxByPartition: make(map[int]int64)}
}

func (w *Watermark) Observe(partition int, ts int64) {
	if m, ok := w.maxByPartition[partition]; !ok || ts > m {
		w.maxByPartition[partition] = ts
	}
}

// Current returns the watermark, false while some partition has not delivered
// any row yet.
func (w *Watermark) Current() (int64, bool) {
	if len(w.maxByPartition) == 0 || len(w.maxByPartition) < w.partitions {
		return math.MinInt64, false
	}
	r := int64(math.MaxInt64)
	for _, m := range w.maxByPartition {
		if m < r {
			r = m
		}
	}
	return r, true
}
