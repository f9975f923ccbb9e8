// Copyright 2019-2024 EMQ Technologies Co., Ltd.
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

package ast

import (
	"fmt"
	"strings"
	"time"
)

type Statement interface {
	Node
	stmt()
}

type Field struct {
	// Name is the output column name: the alias, the referred column or a generated one
	Name string
	// AName is the alias given with AS
	AName string
	Expr  Expr
}

func (f *Field) node() {}

// IsWildcard tells if the field is the * of SELECT *.
func (f *Field) IsWildcard() bool {
	_, ok := f.Expr.(*Wildcard)
	return ok
}

type Fields []Field

func (f Fields) node() {}

type Dimensions []Expr

func (d Dimensions) node() {}

type WindowType int

const (
	NOT_WINDOW WindowType = iota
	TUMBLING_WINDOW
	HOPPING_WINDOW
)

var WindowTypeNames = map[WindowType]string{
	NOT_WINDOW:      "",
	TUMBLING_WINDOW: "TUMBLING",
	HOPPING_WINDOW:  "HOPPING",
}

// Window is the window clause. Length and Interval are durations; Interval is
// only set for hopping windows.
type Window struct {
	WindowType WindowType
	Length     time.Duration
	Interval   time.Duration
}

func (w *Window) node() {}

func (w *Window) String() string {
	if w.WindowType == HOPPING_WINDOW {
		return fmt.Sprintf("HOPPING (SIZE %s, ADVANCE BY %s)", w.Length, w.Interval)
	}
	return fmt.Sprintf("TUMBLING (SIZE %s)", w.Length)
}

type SelectStatement struct {
	Fields     Fields
	Source     string
	Condition  Expr
	Window     *Window
	Dimensions Dimensions
	Having     Expr
}

func (ss *SelectStatement) stmt() {}
func (ss *SelectStatement) node() {}

// IsSelectAll tells if the projection is a single *.
func (ss *SelectStatement) IsSelectAll() bool {
	return len(ss.Fields) == 1 && ss.Fields[0].IsWildcard()
}

// CreateStreamAsSelect is CREATE STREAM name [WITH (...)] AS SELECT ...
type CreateStreamAsSelect struct {
	Name    string
	Options *Options
	Select  *SelectStatement
	// Text is the original statement text
	Text string
}

func (c *CreateStreamAsSelect) stmt() {}
func (c *CreateStreamAsSelect) node() {}

const (
	TypeStream StreamType = iota
	TypeTable
)

var StreamTypeMap = map[StreamType]string{
	TypeStream: "stream",
	TypeTable:  "table",
}

type StreamType int

func (t StreamType) String() string {
	return StreamTypeMap[t]
}

type ColumnDef struct {
	Name string
	Type string
}

// Options are the WITH properties of a source.
type Options struct {
	KAFKA_TOPIC  string
	VALUE_FORMAT string
	KEY          string
	TIMESTAMP    string
	PARTITIONS   int
}

func (o *Options) node() {}

// Set assigns a WITH property by name.
func (o *Options) Set(name string, val Literal) error {
	switch strings.ToUpper(name) {
	case "KAFKA_TOPIC":
		return o.setString(&o.KAFKA_TOPIC, name, val)
	case "VALUE_FORMAT":
		return o.setString(&o.VALUE_FORMAT, name, val)
	case "KEY":
		return o.setString(&o.KEY, name, val)
	case "TIMESTAMP":
		return o.setString(&o.TIMESTAMP, name, val)
	case "PARTITIONS":
		i, ok := val.(*IntegerLiteral)
		if !ok || i.Val <= 0 {
			return fmt.Errorf("property %s expects a positive integer, but got %s", name, val)
		}
		o.PARTITIONS = int(i.Val)
		return nil
	default:
		return fmt.Errorf("unknown property %s", name)
	}
}

func (o *Options) setString(field *string, name string, val Literal) error {
	s, ok := val.(*StringLiteral)
	if !ok {
		return fmt.Errorf("property %s expects a string, but got %s", name, val)
	}
	*field = s.Val
	return nil
}

// StreamStmt is CREATE STREAM|TABLE name (col type, ...) WITH (...)
type StreamStmt struct {
	Name       string
	StreamType StreamType
	Columns    []ColumnDef
	Options    *Options
}

func (s *StreamStmt) stmt() {}
func (s *StreamStmt) node() {}

type DropStreamStatement struct {
	Name       string
	StreamType StreamType
}

func (d *DropStreamStatement) stmt() {}
func (d *DropStreamStatement) node() {}

type ShowStatement struct {
	// What is one of STREAMS, TABLES or QUERIES
	What Token
}

func (s *ShowStatement) stmt() {}
func (s *ShowStatement) node() {}

type DescribeStatement struct {
	Name string
}

func (d *DescribeStatement) stmt() {}
func (d *DescribeStatement) node() {}

type TerminateStatement struct {
	QueryID string
}

func (t *TerminateStatement) stmt() {}
func (t *TerminateStatement) node() {}
