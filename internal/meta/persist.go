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

package meta

import (
	"fmt"
	"strings"

	"github.com/lf-edge/kql/internal/conf"
	"github.com/lf-edge/kql/pkg/ast"
	"github.com/lf-edge/kql/pkg/kv"
	"github.com/lf-edge/kql/pkg/model"
)

const (
	sourcePrefix = "source:"
	topicPrefix  = "topic:"
)

type columnRecord struct {
	Name string
	Type string
}

type sourceRecord struct {
	Name      string
	Kind      int
	Topic     string
	Columns   []columnRecord
	Key       string
	Timestamp string
	Query     string
}

type topicRecord struct {
	Name       string
	Format     string
	Partitions int
}

func toSourceRecord(src *Source) sourceRecord {
	r := sourceRecord{
		Name:      src.Name,
		Kind:      int(src.Kind),
		Topic:     src.Topic,
		Timestamp: src.TimestampColumn,
		Query:     src.Query,
	}
	for _, c := range src.Schema.Columns {
		r.Columns = append(r.Columns, columnRecord{Name: c.Name, Type: c.Type.String()})
	}
	if c, ok := src.Schema.KeyColumn(); ok {
		r.Key = c.Name
	}
	return r
}

func (r sourceRecord) toSource() (*Source, error) {
	cols := make([]model.Column, len(r.Columns))
	for i, c := range r.Columns {
		t, err := model.ParseType(c.Type)
		if err != nil {
			return nil, err
		}
		cols[i] = model.Column{Name: c.Name, Type: t}
	}
	schema, err := model.NewSchema(cols, r.Key)
	if err != nil {
		return nil, err
	}
	return &Source{
		Name:            r.Name,
		Kind:            ast.StreamType(r.Kind),
		Topic:           r.Topic,
		Schema:          schema,
		TimestampColumn: r.Timestamp,
		Query:           r.Query,
	}, nil
}

func toTopicRecord(t *Topic) topicRecord {
	return topicRecord{Name: t.Name, Format: t.Format, Partitions: t.Partitions}
}

// Load rebuilds a registry from its mirror.
func Load(mirror kv.KeyValue) (*Store, error) {
	s := NewStore(mirror)
	keys, err := mirror.Keys()
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		switch {
		case strings.HasPrefix(k, topicPrefix):
			var r topicRecord
			if ok, err := mirror.Get(k, &r); err != nil {
				return nil, fmt.Errorf("load %s error: %v", k, err)
			} else if ok {
				s.topics[nameKey(r.Name)] = &Topic{Name: r.Name, Format: r.Format, Partitions: r.Partitions}
			}
		case strings.HasPrefix(k, sourcePrefix):
			var r sourceRecord
			if ok, err := mirror.Get(k, &r); err != nil {
				return nil, fmt.Errorf("load %s error: %v", k, err)
			} else if ok {
				src, err := r.toSource()
				if err != nil {
					return nil, fmt.Errorf("load %s error: %v", k, err)
				}
				s.sources[nameKey(r.Name)] = src
			}
		default:
			conf.Log.Warnf("unknown registry key %s", k)
		}
	}
	conf.Log.Infof("load %d sources and %d topics from the registry mirror", len(s.sources), len(s.topics))
	return s, nil
}
