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

package cbor

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/lf-edge/kql/pkg/errorx"
	"github.com/lf-edge/kql/pkg/model"
)

// Converter encodes a row as a cbor map keyed by column name.
type Converter struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func NewConverter() *Converter {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return &Converter{enc: enc, dec: dec}
}

func (c *Converter) Encode(row model.Row, schema *model.Schema) ([]byte, error) {
	if row.Len() != schema.Len() {
		return nil, errorx.NewWithCode(errorx.ConverterErr, fmt.Sprintf("expect %d columns but got %d", schema.Len(), row.Len()))
	}
	b, err := c.enc.Marshal(model.ToMap(row, schema))
	if err != nil {
		return nil, errorx.NewWithCode(errorx.ConverterErr, err.Error())
	}
	return b, nil
}

func (c *Converter) Decode(b []byte, schema *model.Schema) (model.Row, error) {
	var m map[string]any
	if err := c.dec.Unmarshal(b, &m); err != nil {
		return model.Row{}, errorx.NewWithCode(errorx.ConverterErr, err.Error())
	}
	r, err := model.FromMap(m, schema)
	if err != nil {
		return model.Row{}, errorx.NewWithCode(errorx.ConverterErr, err.Error())
	}
	return r, nil
}
