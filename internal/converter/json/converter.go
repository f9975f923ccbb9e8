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

package json

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/lf-edge/kql/pkg/errorx"
	"github.com/lf-edge/kql/pkg/model"
)

// Converter encodes a row as a json object keyed by column name and decodes
// objects by matching field names case-insensitively.
type Converter struct {
	pool fastjson.ParserPool
}

func NewConverter() *Converter {
	return &Converter{}
}

func (c *Converter) Encode(row model.Row, schema *model.Schema) ([]byte, error) {
	if row.Len() != schema.Len() {
		return nil, errorx.NewWithCode(errorx.ConverterErr, fmt.Sprintf("expect %d columns but got %d", schema.Len(), row.Len()))
	}
	var a fastjson.Arena
	o := a.NewObject()
	for i, col := range schema.Columns {
		o.Set(col.Name, toJson(&a, row.Get(i)))
	}
	return o.MarshalTo(nil), nil
}

func toJson(a *fastjson.Arena, v model.Value) *fastjson.Value {
	switch v.Kind() {
	case model.KindBigint:
		return a.NewNumberString(strconv.FormatInt(v.Int(), 10))
	case model.KindDouble:
		// json has no NaN or Inf
		if f := v.Float(); !math.IsNaN(f) && !math.IsInf(f, 0) {
			return a.NewNumberFloat64(f)
		}
		return a.NewNull()
	case model.KindString:
		return a.NewString(v.Str())
	case model.KindBoolean:
		if v.Bool() {
			return a.NewTrue()
		}
		return a.NewFalse()
	case model.KindArray:
		arr := a.NewArray()
		for i, e := range v.Elems() {
			arr.SetArrayItem(i, toJson(a, e))
		}
		return arr
	case model.KindMap:
		o := a.NewObject()
		for _, k := range v.Keys() {
			o.Set(k, toJson(a, v.Lookup(k)))
		}
		return o
	default:
		return a.NewNull()
	}
}

func (c *Converter) Decode(b []byte, schema *model.Schema) (r model.Row, err error) {
	defer func() {
		if err != nil {
			err = errorx.NewWithCode(errorx.ConverterErr, err.Error())
		}
	}()
	p := c.pool.Get()
	defer c.pool.Put(p)
	v, err := p.ParseBytes(b)
	if err != nil {
		return model.Row{}, err
	}
	obj, err := v.Object()
	if err != nil {
		return model.Row{}, fmt.Errorf("only json object is supported: %v", err)
	}
	fields := make(map[string]*fastjson.Value, obj.Len())
	obj.Visit(func(k []byte, v *fastjson.Value) {
		fields[strings.ToUpper(string(k))] = v
	})
	builder := model.NewRowBuilder(schema.Len())
	for i, col := range schema.Columns {
		fv, ok := fields[strings.ToUpper(col.Name)]
		if !ok {
			continue
		}
		val, err := fromJson(fv, col.Type)
		if err != nil {
			return model.Row{}, fmt.Errorf("column %s: %v", col.Name, err)
		}
		builder.Set(i, val)
	}
	return builder.Build(), nil
}

func fromJson(v *fastjson.Value, t model.Type) (model.Value, error) {
	if v.Type() == fastjson.TypeNull {
		return model.Null, nil
	}
	switch t.Kind {
	case model.KindBigint:
		if v.Type() != fastjson.TypeNumber {
			return model.Null, fmt.Errorf("expect BIGINT but got %s", v.Type())
		}
		if i, err := v.Int64(); err == nil {
			return model.Int(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return model.Null, err
		}
		return model.FromGo(f, t)
	case model.KindDouble:
		if v.Type() != fastjson.TypeNumber {
			return model.Null, fmt.Errorf("expect DOUBLE but got %s", v.Type())
		}
		f, err := v.Float64()
		if err != nil {
			return model.Null, err
		}
		return model.Float(f), nil
	case model.KindString:
		if v.Type() != fastjson.TypeString {
			return model.Null, fmt.Errorf("expect STRING but got %s", v.Type())
		}
		return model.Str(string(v.GetStringBytes())), nil
	case model.KindBoolean:
		b, err := v.Bool()
		if err != nil {
			return model.Null, fmt.Errorf("expect BOOLEAN but got %s", v.Type())
		}
		return model.Bool(b), nil
	case model.KindArray:
		items, err := v.Array()
		if err != nil {
			return model.Null, fmt.Errorf("expect %s but got %s", t, v.Type())
		}
		vs := make([]model.Value, len(items))
		for i, item := range items {
			ev, err := fromJson(item, *t.Elem)
			if err != nil {
				return model.Null, fmt.Errorf("array element %d: %v", i, err)
			}
			vs[i] = ev
		}
		return model.Array(*t.Elem, vs...), nil
	case model.KindMap:
		o, err := v.Object()
		if err != nil {
			return model.Null, fmt.Errorf("expect %s but got %s", t, v.Type())
		}
		m := make(map[string]model.Value, o.Len())
		o.Visit(func(k []byte, item *fastjson.Value) {
			if err != nil {
				return
			}
			var ev model.Value
			ev, err = fromJson(item, *t.Elem)
			if err != nil {
				err = fmt.Errorf("map entry %s: %v", k, err)
				return
			}
			m[string(k)] = ev
		})
		if err != nil {
			return model.Null, err
		}
		return model.Map(*t.Elem, m), nil
	}
	return model.Null, fmt.Errorf("unsupported type %s", t)
}
