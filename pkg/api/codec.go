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

package api

import "github.com/lf-edge/kql/pkg/model"

// RecordCodec converts rows to and from the value bytes of a topic.
// Decode(Encode(r, s), s) must equal r for every row r conforming to s.
type RecordCodec interface {
	Encode(row model.Row, schema *model.Schema) ([]byte, error)
	Decode(b []byte, schema *model.Schema) (model.Row, error)
}
