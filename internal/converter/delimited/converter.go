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

package delimited

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/lf-edge/kql/pkg/errorx"
	"github.com/lf-edge/kql/pkg/model"
)

// Converter writes the columns of a row positionally as one comma separated
// line. Only scalar columns are supported and an empty field is null.
type Converter struct {
	Delimiter rune
}

func NewConverter() *Converter {
	return &Converter{Delimiter: ','}
}

func (c *Converter) Encode(row model.Row, schema *model.Schema) (b []byte, err error) {
	defer func() {
		if err != nil {
			err = errorx.NewWithCode(errorx.ConverterErr, err.Error())
		}
	}()
	if row.Len() != schema.Len() {
		return nil, fmt.Errorf("expect %d columns but got %d", schema.Len(), row.Len())
	}
	record := make([]string, schema.Len())
	for i, col := range schema.Columns {
		switch col.Type.Kind {
		case model.KindArray, model.KindMap:
			return nil, fmt.Errorf("delimited format does not support column %s of type %s", col.Name, col.Type)
		}
		if v := row.Get(i); !v.IsNull() {
			record[i] = v.String()
		}
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	w.Comma = c.Delimiter
	if err := w.Write(record); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\r\n"), nil
}

func (c *Converter) Decode(b []byte, schema *model.Schema) (r model.Row, err error) {
	defer func() {
		if err != nil {
			err = errorx.NewWithCode(errorx.ConverterErr, err.Error())
		}
	}()
	if len(bytes.TrimSpace(b)) == 0 && schema.Len() == 1 {
		return model.NewRow(model.Null), nil
	}
	reader := csv.NewReader(bytes.NewReader(b))
	reader.Comma = c.Delimiter
	reader.FieldsPerRecord = -1
	record, err := reader.Read()
	if err != nil {
		return model.Row{}, err
	}
	if len(record) != schema.Len() {
		return model.Row{}, fmt.Errorf("expect %d fields but got %d", schema.Len(), len(record))
	}
	builder := model.NewRowBuilder(schema.Len())
	for i, col := range schema.Columns {
		if record[i] == "" {
			continue
		}
		v, err := model.ParseString(record[i], col.Type)
		if err != nil {
			return model.Row{}, fmt.Errorf("column %s: %v", col.Name, err)
		}
		builder.Set(i, v)
	}
	return builder.Build(), nil
}
