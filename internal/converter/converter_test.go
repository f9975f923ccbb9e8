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

package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lf-edge/kql/pkg/errorx"
	"github.com/lf-edge/kql/pkg/model"
)

var (
	scalarSchema = model.MustSchema([]model.Column{
		{Name: "ORDERTIME", Type: model.BigintType},
		{Name: "ITEMID", Type: model.StringType},
		{Name: "ORDERUNITS", Type: model.DoubleType},
		{Name: "ACTIVE", Type: model.BooleanType},
	}, "ITEMID")
	nestedSchema = model.MustSchema([]model.Column{
		{Name: "ORDERID", Type: model.StringType},
		{Name: "PRICEARRAY", Type: model.ArrayOf(model.DoubleType)},
		{Name: "KEYVALUEMAP", Type: model.MapOf(model.DoubleType)},
		{Name: "TAGS", Type: model.ArrayOf(model.StringType)},
	}, "ORDERID")
)

func TestRoundTrip(t *testing.T) {
	scalarRows := []model.Row{
		model.NewRow(model.Int(1), model.Str("ITEM_1"), model.Float(10.5), model.Bool(true)),
		model.NewRow(model.Int(-9007199254740993), model.Str("a,b \"quoted\""), model.Float(80), model.Bool(false)),
		model.NewRow(model.Null, model.Str("ITEM_3"), model.Null, model.Null),
	}
	nestedRows := []model.Row{
		model.NewRow(
			model.Str("ORDER_8"),
			model.Array(model.DoubleType, model.Float(1100.0), model.Float(1110.99), model.Float(970.0)),
			model.Map(model.DoubleType, map[string]model.Value{"key1": model.Float(1), "key2": model.Float(2), "key3": model.Float(3)}),
			model.Array(model.StringType),
		),
		model.NewRow(model.Str("ORDER_9"), model.Null, model.Map(model.DoubleType, nil), model.Array(model.StringType, model.Str("x"), model.Null)),
	}
	for _, format := range Formats() {
		t.Run(format, func(t *testing.T) {
			c, err := GetCodec(format)
			require.NoError(t, err)
			for i, r := range scalarRows {
				b, err := c.Encode(r, scalarSchema)
				require.NoError(t, err, "case %d", i)
				got, err := c.Decode(b, scalarSchema)
				require.NoError(t, err, "case %d", i)
				assert.True(t, r.Equal(got), "case %d: expect %s but got %s", i, r, got)
			}
			if format == FormatDelimited {
				return
			}
			for i, r := range nestedRows {
				b, err := c.Encode(r, nestedSchema)
				require.NoError(t, err, "case %d", i)
				got, err := c.Decode(b, nestedSchema)
				require.NoError(t, err, "case %d", i)
				assert.True(t, r.Equal(got), "case %d: expect %s but got %s", i, r, got)
			}
		})
	}
}

func TestGetCodec(t *testing.T) {
	assert.Equal(t, []string{"cbor", "delimited", "json", "msgpack"}, Formats())
	c, err := GetCodec("")
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.True(t, IsSupported("JSON"))
	assert.False(t, IsSupported("avro"))
	_, err = GetCodec("avro")
	assert.EqualError(t, err, "format type avro not supported")
	code, ok := errorx.GetErrorCode(err)
	assert.True(t, ok)
	assert.Equal(t, errorx.ConverterErr, code)
}

func TestEncodeArity(t *testing.T) {
	for _, format := range Formats() {
		c, err := GetCodec(format)
		require.NoError(t, err)
		_, err = c.Encode(model.NewRow(model.Int(1)), scalarSchema)
		assert.Error(t, err, format)
	}
}
