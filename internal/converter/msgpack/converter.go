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

package msgpack

import (
	"fmt"
	"reflect"

	"github.com/ugorji/go/codec"

	"github.com/lf-edge/kql/pkg/errorx"
	"github.com/lf-edge/kql/pkg/model"
)

// Converter encodes a row as a msgpack map keyed by column name.
type Converter struct {
	h *codec.MsgpackHandle
}

func NewConverter() *Converter {
	h := &codec.MsgpackHandle{}
	h.WriteExt = true
	h.RawToString = true
	h.MapType = reflect.TypeOf(map[string]any(nil))
	h.Canonical = true
	return &Converter{h: h}
}

func (c *Converter) Encode(row model.Row, schema *model.Schema) ([]byte, error) {
	if row.Len() != schema.Len() {
		return nil, errorx.NewWithCode(errorx.ConverterErr, fmt.Sprintf("expect %d columns but got %d", schema.Len(), row.Len()))
	}
	var b []byte
	if err := codec.NewEncoderBytes(&b, c.h).Encode(model.ToMap(row, schema)); err != nil {
		return nil, errorx.NewWithCode(errorx.ConverterErr, err.Error())
	}
	return b, nil
}

func (c *Converter) Decode(b []byte, schema *model.Schema) (model.Row, error) {
	var m map[string]any
	if err := codec.NewDecoderBytes(b, c.h).Decode(&m); err != nil {
		return model.Row{}, errorx.NewWithCode(errorx.ConverterErr, err.Error())
	}
	r, err := model.FromMap(m, schema)
	if err != nil {
		return model.Row{}, errorx.NewWithCode(errorx.ConverterErr, err.Error())
	}
	return r, nil
}
