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

package json

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lf-edge/kql/pkg/model"
)

var ordersSchema = model.MustSchema([]model.Column{
	{Name: "ORDERTIME", Type: model.BigintType},
	{Name: "ORDERID", Type: model.StringType},
	{Name: "ORDERUNITS", Type: model.DoubleType},
	{Name: "PRICEARRAY", Type: model.ArrayOf(model.DoubleType)},
	{Name: "KEYVALUEMAP", Type: model.MapOf(model.DoubleType)},
}, "ORDERID")

func TestDecode(t *testing.T) {
	tests := []struct {
		payload string
		row     model.Row
		err     string
	}{
		{
			payload: `{"ordertime":1,"OrderId":"ORDER_1","orderUnits":80,"priceArray":[1100.0,1110.99],"keyValueMap":{"key1":1}}`,
			row: model.NewRow(model.Int(1), model.Str("ORDER_1"), model.Float(80),
				model.Array(model.DoubleType, model.Float(1100), model.Float(1110.99)),
				model.Map(model.DoubleType, map[string]model.Value{"key1": model.Float(1)})),
		},
		{
			payload: `{"ORDERTIME":2.0,"ORDERID":null,"EXTRA":true}`,
			row:     model.NewRow(model.Int(2), model.Null, model.Null, model.Null, model.Null),
		},
		{
			payload: `{"ORDERTIME":"2"}`,
			err:     "column ORDERTIME: expect BIGINT but got string",
		},
		{
			payload: `{"ORDERTIME":2.5}`,
			err:     "column ORDERTIME: value 2.5 is not an integer",
		},
		{
			payload: `{"PRICEARRAY":[1,"a"]}`,
			err:     "column PRICEARRAY: array element 1: expect DOUBLE but got string",
		},
		{
			payload: `{"KEYVALUEMAP":{"k":false}}`,
			err:     "column KEYVALUEMAP: map entry k: expect DOUBLE but got false",
		},
		{
			payload: `[1,2]`,
			err:     "only json object is supported: value doesn't contain object; it contains array",
		},
	}
	c := NewConverter()
	for i, tt := range tests {
		r, err := c.Decode([]byte(tt.payload), ordersSchema)
		if tt.err != "" {
			assert.EqualError(t, err, tt.err, "case %d", i)
			continue
		}
		require.NoError(t, err, "case %d", i)
		assert.True(t, tt.row.Equal(r), "case %d: expect %s but got %s", i, tt.row, r)
	}
}

func TestEncode(t *testing.T) {
	c := NewConverter()
	r := model.NewRow(model.Int(3), model.Str("ORDER_3"), model.Float(12.5),
		model.Array(model.DoubleType, model.Float(1), model.Null),
		model.Map(model.DoubleType, map[string]model.Value{"b": model.Float(2), "a": model.Float(1)}))
	b, err := c.Encode(r, ordersSchema)
	require.NoError(t, err)
	assert.Equal(t, `{"ORDERTIME":3,"ORDERID":"ORDER_3","ORDERUNITS":12.5,"PRICEARRAY":[1,null],"KEYVALUEMAP":{"a":1,"b":2}}`, string(b))
}

func TestEncodeNonFinite(t *testing.T) {
	c := NewConverter()
	r := model.NewRow(model.Int(3), model.Str("ORDER_3"), model.Float(math.NaN()),
		model.Array(model.DoubleType, model.Float(math.Inf(1)), model.Float(1)),
		model.Map(model.DoubleType, map[string]model.Value{"a": model.Float(math.Inf(-1))}))
	b, err := c.Encode(r, ordersSchema)
	require.NoError(t, err)
	assert.Equal(t, `{"ORDERTIME":3,"ORDERID":"ORDER_3","ORDERUNITS":null,"PRICEARRAY":[null,1],"KEYVALUEMAP":{"a":null}}`, string(b))
	back, err := c.Decode(b, ordersSchema)
	require.NoError(t, err)
	assert.True(t, back.Get(2).IsNull())
	assert.True(t, back.Get(3).Elems()[0].IsNull())
}
