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

package processor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lf-edge/kql/internal/conf"
	"github.com/lf-edge/kql/internal/converter"
	"github.com/lf-edge/kql/internal/meta"
	"github.com/lf-edge/kql/internal/topo/rule"
	"github.com/lf-edge/kql/internal/xsql"
	"github.com/lf-edge/kql/pkg/ast"
	"github.com/lf-edge/kql/pkg/errorx"
	"github.com/lf-edge/kql/pkg/model"
)

// Execute runs one statement of any kind and returns a printable result.
// A CREATE STREAM AS SELECT is compiled and started.
func (e *QueryEngine) Execute(ctx context.Context, statement string) (string, error) {
	stmt, err := xsql.Parse(statement)
	if err != nil {
		return "", err
	}
	return e.execStmt(ctx, stmt)
}

// ExecuteAll runs the semicolon separated statements in order and stops at
// the first failure.
func (e *QueryEngine) ExecuteAll(ctx context.Context, statements string) ([]string, error) {
	stmts, err := xsql.ParseStatements(statements)
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, len(stmts))
	for _, stmt := range stmts {
		r, err := e.execStmt(ctx, stmt)
		if err != nil {
			return result, err
		}
		result = append(result, r)
	}
	return result, nil
}

func (e *QueryEngine) execStmt(ctx context.Context, stmt ast.Statement) (string, error) {
	switch s := stmt.(type) {
	case *ast.StreamStmt:
		stt := cases.Title(language.Und).String(s.StreamType.String())
		if err := e.execCreate(ctx, s); err != nil {
			return "", fmt.Errorf("create %s fails: %w", s.StreamType, err)
		}
		r := fmt.Sprintf("%s %s is created.", stt, s.Name)
		conf.Log.Info(r)
		return r, nil
	case *ast.CreateStreamAsSelect:
		q, err := e.compile(ctx, s)
		if err != nil {
			return "", err
		}
		if err := e.Start(q); err != nil {
			return "", err
		}
		return fmt.Sprintf("Stream %s is created and running persistent query %s.", q.Sink, q.ID), nil
	case *ast.DropStreamStatement:
		return e.execDrop(s)
	case *ast.ShowStatement:
		return e.execShow(s)
	case *ast.DescribeStatement:
		return e.execDescribe(s)
	case *ast.TerminateStatement:
		if _, ok := e.Get(s.QueryID); !ok {
			return "", errorx.NewWithCode(errorx.NOT_FOUND, fmt.Sprintf("query %s is not found", s.QueryID))
		}
		if err := e.Terminate(s.QueryID, false); err != nil {
			return "", err
		}
		return fmt.Sprintf("Query %s is terminated.", strings.ToUpper(s.QueryID)), nil
	default:
		return "", errorx.NewInvalidStatement("unsupported statement %T", stmt)
	}
}

func (e *QueryEngine) execCreate(ctx context.Context, s *ast.StreamStmt) error {
	cols := make([]model.Column, len(s.Columns))
	for i, c := range s.Columns {
		t, err := model.ParseType(c.Type)
		if err != nil {
			return errorx.NewInvalidStatement("column %s: %v", c.Name, err)
		}
		cols[i] = model.Column{Name: c.Name, Type: t}
	}
	o := s.Options
	if o == nil {
		o = &ast.Options{}
	}
	schema, err := model.NewSchema(cols, o.KEY)
	if err != nil {
		return errorx.NewInvalidStatement("%v", err)
	}
	if o.TIMESTAMP != "" {
		i, ok := schema.IndexOf(o.TIMESTAMP)
		if !ok {
			return &errorx.UnknownColumnError{Name: o.TIMESTAMP}
		}
		if t := schema.Columns[i].Type; t.Kind != model.KindBigint {
			return errorx.NewTypeMismatch("TIMESTAMP column %s must be BIGINT but got %s", o.TIMESTAMP, t)
		}
	}
	src := &meta.Source{
		Name:            s.Name,
		Kind:            s.StreamType,
		Topic:           o.KAFKA_TOPIC,
		Schema:          schema,
		TimestampColumn: o.TIMESTAMP,
	}
	if src.Topic == "" {
		src.Topic = s.Name
	}
	format := strings.ToLower(o.VALUE_FORMAT)

	e.mu.Lock()
	defer e.mu.Unlock()
	if t, err := e.store.GetTopic(src.Topic); err == nil {
		if format != "" && format != t.Format {
			return errorx.NewInvalidStatement("topic %s is registered with format %s but got %s", t.Name, t.Format, format)
		}
		if o.PARTITIONS > 0 && o.PARTITIONS != t.Partitions {
			return errorx.NewInvalidStatement("topic %s is registered with %d partitions but got %d", t.Name, t.Partitions, o.PARTITIONS)
		}
		return e.store.PutSource(src)
	}
	t := &meta.Topic{Name: src.Topic, Format: format, Partitions: o.PARTITIONS}
	if t.Format == "" {
		t.Format = e.opts.DefaultFormat
	}
	if !converter.IsSupported(t.Format) {
		return errorx.NewInvalidStatement("VALUE_FORMAT %s is not supported", t.Format)
	}
	if t.Partitions <= 0 {
		t.Partitions = e.opts.DefaultPartitions
	}
	if err := e.store.PutSourceWithTopic(src, t); err != nil {
		return err
	}
	if err := e.log.CreateTopic(ctx, t.Name, t.Partitions); err != nil {
		_ = e.store.DropSource(src.Name)
		_ = e.store.DropTopic(t.Name)
		return fmt.Errorf("create topic %s error: %w", t.Name, err)
	}
	return nil
}

func (e *QueryEngine) execDrop(s *ast.DropStreamStatement) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	src, err := e.store.GetSource(s.Name)
	if err != nil {
		return "", err
	}
	if src.Kind != s.StreamType {
		return "", errorx.NewInvalidStatement("%s is a %s, not a %s", src.Name, src.Kind, s.StreamType)
	}
	if src.Query != "" {
		if q, ok := e.Get(src.Query); ok && q.State() == rule.Running {
			return "", errorx.NewInvalidStatement("cannot drop %s %s, query %s is writing to it, terminate it first", src.Kind, src.Name, q.ID)
		}
	}
	for _, q := range e.List() {
		if strings.EqualFold(q.Source, src.Name) && q.State() == rule.Running {
			return "", errorx.NewInvalidStatement("cannot drop %s %s, query %s is reading from it, terminate it first", src.Kind, src.Name, q.ID)
		}
	}
	if err := e.store.DropSource(src.Name); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s is dropped.", cases.Title(language.Und).String(src.Kind.String()), src.Name), nil
}

func (e *QueryEngine) execShow(s *ast.ShowStatement) (string, error) {
	buff := &bytes.Buffer{}
	switch s.What {
	case ast.STREAMS, ast.TABLES:
		kind := ast.TypeStream
		if s.What == ast.TABLES {
			kind = ast.TypeTable
		}
		sources := e.store.ListSources(kind)
		if len(sources) == 0 {
			return fmt.Sprintf("No %s definitions are found.", kind), nil
		}
		for _, src := range sources {
			format := ""
			if t, err := e.store.GetTopic(src.Topic); err == nil {
				format = t.Format
			}
			fmt.Fprintf(buff, "%s\t%s\t%s\n", src.Name, src.Topic, format)
		}
	case ast.QUERIES:
		queries := e.List()
		if len(queries) == 0 {
			return "No queries are found.", nil
		}
		for _, q := range queries {
			fmt.Fprintf(buff, "%s\t%s\t%s\t%s\n", q.ID, q.State(), q.Sink, q.Statement)
		}
	default:
		return "", errorx.NewInvalidStatement("SHOW %s is not supported", s.What)
	}
	return strings.TrimRight(buff.String(), "\n"), nil
}

func (e *QueryEngine) execDescribe(s *ast.DescribeStatement) (string, error) {
	src, err := e.store.GetSource(s.Name)
	if err != nil {
		return "", err
	}
	buff := &bytes.Buffer{}
	fmt.Fprintf(buff, "Name: %s\nType: %s\nTopic: %s\n", src.Name, src.Kind, src.Topic)
	if src.TimestampColumn != "" {
		fmt.Fprintf(buff, "Timestamp: %s\n", src.TimestampColumn)
	}
	if src.Query != "" {
		fmt.Fprintf(buff, "Query: %s\n", src.Query)
	}
	buff.WriteString("Fields\n")
	for i, c := range src.Schema.Columns {
		key := ""
		if i == src.Schema.Key {
			key = " (key)"
		}
		fmt.Fprintf(buff, "%s\t%s%s\n", c.Name, c.Type, key)
	}
	return strings.TrimRight(buff.String(), "\n"), nil
}
