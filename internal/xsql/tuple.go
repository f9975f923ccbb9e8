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

import "github.com/lf-edge/kql/pkg/model"

// Tuple is a row flowing through a dataflow with its event time in
// milliseconds and the log partition it was read from.
type Tuple struct {
	Row       model.Row
	Timestamp int64
	Partition int
	// Key is the record key. Sources set the input key, aggregations replace
	// it with the windowed key.
	Key []byte
}

// WithRow returns a tuple of the same origin and key carrying row.
func (t *Tuple) WithRow(row model.Row) *Tuple {
	return &Tuple{Row: row, Timestamp: t.Timestamp, Partition: t.Partition, Key: t.Key}
}
