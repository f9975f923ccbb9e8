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

package planner

import (
	"strings"

	"github.com/lf-edge/kql/internal/converter"
	"github.com/lf-edge/kql/internal/meta"
	"github.com/lf-edge/kql/internal/xsql"
	"github.com/lf-edge/kql/pkg/ast"
	"github.com/lf-edge/kql/pkg/errorx"
	"github.com/lf-edge/kql/pkg/model"
)

// Plan is a bound CREATE STREAM AS SELECT. Output and OutputTopic are the
// registrations the query derives; they are not registered by the planner.
type Plan struct {
	Logical     LogicalPlan
	Input       *meta.Source
	Output      *meta.Source
	OutputTopic *meta.Topic
}

// CreateLogicalPlan binds the statement against the registry in the order
// FROM, WHERE, SELECT, GROUP BY, HAVING and builds the logical plan
// Source, Filter, Project, WindowAssign, Aggregate, Having, Sink.
func CreateLogicalPlan(stmt *ast.CreateStreamAsSelect, store *meta.Store, defaultFormat string) (*Plan, error) {
	sel := stmt.Select
	if sel == nil {
		return nil, errorx.NewInvalidStatement("CREATE STREAM %s AS has no SELECT", stmt.Name)
	}
	src, err := store.GetSource(sel.Source)
	if err != nil {
		return nil, err
	}
	if _, err := store.GetSource(stmt.Name); err == nil {
		return nil, &errorx.DuplicateNameError{Kind: ast.TypeStream.String(), Name: stmt.Name}
	}
	inTopic, err := store.GetTopic(src.Topic)
	if err != nil {
		return nil, err
	}
	if err := validate(sel); err != nil {
		return nil, err
	}
	input := src.Schema
	ds := DataSourcePlan{source: src, topic: inTopic, tsIndex: -1}.Init()
	if src.TimestampColumn != "" {
		if i, ok := input.IndexOf(src.TimestampColumn); ok {
			ds.tsIndex = i
		}
	}
	var lp LogicalPlan = ds
	if sel.Condition != nil {
		ev, err := xsql.CompilePredicate(sel.Condition, input, "WHERE")
		if err != nil {
			return nil, err
		}
		f := FilterPlan{condition: sel.Condition, eval: ev}.Init()
		f.SetChildren([]LogicalPlan{lp})
		lp = f
	}

	var schema *model.Schema
	if len(sel.Dimensions) == 0 {
		lp, schema, err = bindProjection(sel, input, lp)
	} else {
		lp, schema, err = bindAggregate(sel, input, lp)
	}
	if err != nil {
		return nil, err
	}

	outTopic, err := outputTopic(stmt, inTopic, defaultFormat)
	if err != nil {
		return nil, err
	}
	out := &meta.Source{
		Name:   stmt.Name,
		Kind:   ast.TypeStream,
		Topic:  outTopic.Name,
		Schema: schema,
	}
	// event time is carried over when the timestamp column is projected as is
	if ds.tsIndex >= 0 && len(sel.Dimensions) == 0 {
		if _, ok := schema.IndexOf(src.TimestampColumn); ok {
			out.TimestampColumn = src.TimestampColumn
		}
	}
	sink := SinkPlan{source: out, topic: outTopic}.Init()
	sink.SetChildren([]LogicalPlan{lp})
	return &Plan{
		Logical:     sink,
		Input:       src,
		Output:      out,
		OutputTopic: outTopic,
	}, nil
}

func validate(sel *ast.SelectStatement) error {
	grouped := len(sel.Dimensions) > 0
	if !grouped {
		if sel.Having != nil {
			return errorx.NewInvalidStatement("HAVING requires GROUP BY")
		}
		if sel.Window != nil {
			return errorx.NewInvalidStatement("WINDOW requires GROUP BY")
		}
		for _, f := range sel.Fields {
			if xsql.HasAggregate(f.Expr) {
				return errorx.NewInvalidStatement("aggregate function in %s requires GROUP BY", f.Expr)
			}
		}
	} else if sel.IsSelectAll() {
		return errorx.NewInvalidStatement("SELECT * is not supported with GROUP BY")
	}
	if !sel.IsSelectAll() {
		seen := make(map[string]struct{}, len(sel.Fields))
		for _, f := range sel.Fields {
			if f.IsWildcard() {
				return errorx.NewInvalidStatement("* must be the only projection")
			}
			n := strings.ToUpper(f.Name)
			if _, ok := seen[n]; ok {
				return errorx.NewInvalidStatement("duplicate output column name %s", f.Name)
			}
			seen[n] = struct{}{}
		}
	}
	return nil
}

func bindProjection(sel *ast.SelectStatement, input *model.Schema, child LogicalPlan) (LogicalPlan, *model.Schema, error) {
	var (
		fields []xsql.Evaluator
		cols   []model.Column
		key    string
	)
	if sel.IsSelectAll() {
		for _, c := range input.Columns {
			ev, err := xsql.Compile(&ast.FieldRef{Name: c.Name}, input)
			if err != nil {
				return nil, nil, err
			}
			fields = append(fields, ev)
		}
		cols = input.Columns
		if kc, ok := input.KeyColumn(); ok {
			key = kc.Name
		}
	} else {
		inputKey, hasKey := input.KeyColumn()
		for _, f := range sel.Fields {
			ev, err := xsql.Compile(f.Expr, input)
			if err != nil {
				return nil, nil, err
			}
			fields = append(fields, ev)
			cols = append(cols, model.Column{Name: f.Name, Type: columnType(ev.Type())})
			if key == "" && hasKey {
				if fr, ok := ast.StripParen(f.Expr).(*ast.FieldRef); ok && strings.EqualFold(fr.Name, inputKey.Name) {
					key = f.Name
				}
			}
		}
	}
	schema, err := model.NewSchema(cols, key)
	if err != nil {
		return nil, nil, errorx.NewInvalidStatement("%v", err)
	}
	p := ProjectPlan{fields: fields}.Init()
	p.SetChildren([]LogicalPlan{child})
	return p, schema, nil
}

func bindAggregate(sel *ast.SelectStatement, input *model.Schema, child LogicalPlan) (LogicalPlan, *model.Schema, error) {
	// unknown columns are reported before any grouping error
	for _, f := range sel.Fields {
		if err := checkColumns(f.Expr, input); err != nil {
			return nil, nil, err
		}
	}
	binder, err := xsql.NewAggregateBinder(input, sel.Dimensions)
	if err != nil {
		return nil, nil, err
	}
	var (
		projected []xsql.Evaluator
		cols      []model.Column
		key       string
	)
	for _, f := range sel.Fields {
		ev, err := binder.Bind(f.Expr, "SELECT")
		if err != nil {
			return nil, nil, err
		}
		projected = append(projected, ev)
		cols = append(cols, model.Column{Name: f.Name, Type: columnType(ev.Type())})
		if key == "" && len(sel.Dimensions) == 1 && ast.Equal(ast.StripParen(f.Expr), ast.StripParen(sel.Dimensions[0])) {
			key = f.Name
		}
	}
	var having *HavingPlan
	if sel.Having != nil {
		ev, err := binder.BindPredicate(sel.Having, "HAVING")
		if err != nil {
			return nil, nil, err
		}
		having = HavingPlan{condition: sel.Having, eval: ev}.Init()
	}
	schema, err := model.NewSchema(cols, key)
	if err != nil {
		return nil, nil, errorx.NewInvalidStatement("%v", err)
	}

	inputs := append([]xsql.Evaluator{}, binder.GroupBy()...)
	for _, a := range binder.Aggregates() {
		inputs = append(inputs, a.Arg)
	}
	proj := ProjectPlan{fields: inputs, aggInput: true}.Init()
	proj.SetChildren([]LogicalPlan{child})
	w := WindowPlan{window: sel.Window}.Init()
	w.SetChildren([]LogicalPlan{proj})
	agg := AggregatePlan{dimensions: sel.Dimensions, aggs: binder.Aggregates(), projected: projected}.Init()
	agg.SetChildren([]LogicalPlan{w})
	if having == nil {
		return agg, schema, nil
	}
	having.SetChildren([]LogicalPlan{agg})
	return having, schema, nil
}

func checkColumns(e ast.Expr, schema *model.Schema) error {
	var err error
	ast.WalkFunc(e, func(n ast.Node) bool {
		if fr, ok := n.(*ast.FieldRef); ok {
			if _, found := schema.IndexOf(fr.Name); !found {
				err = &errorx.UnknownColumnError{Name: fr.Name}
				return false
			}
		}
		return err == nil
	})
	return err
}

// columnType maps an expression type to a column type. An expression that
// is always null becomes a STRING column.
func columnType(t model.Type) model.Type {
	if t.Kind == model.KindNull {
		return model.StringType
	}
	return t
}

func outputTopic(stmt *ast.CreateStreamAsSelect, input *meta.Topic, defaultFormat string) (*meta.Topic, error) {
	t := &meta.Topic{
		Name:       stmt.Name,
		Format:     input.Format,
		Partitions: input.Partitions,
	}
	if t.Format == "" {
		t.Format = defaultFormat
	}
	if o := stmt.Options; o != nil {
		if o.KEY != "" || o.TIMESTAMP != "" {
			return nil, errorx.NewInvalidStatement("CREATE STREAM AS SELECT only accepts KAFKA_TOPIC, VALUE_FORMAT and PARTITIONS")
		}
		if o.KAFKA_TOPIC != "" {
			t.Name = o.KAFKA_TOPIC
		}
		if o.VALUE_FORMAT != "" {
			t.Format = strings.ToLower(o.VALUE_FORMAT)
		}
		if o.PARTITIONS > 0 {
			t.Partitions = o.PARTITIONS
		}
	}
	if !converter.IsSupported(t.Format) {
		return nil, errorx.NewInvalidStatement("VALUE_FORMAT %s is not supported", t.Format)
	}
	if t.Partitions <= 0 {
		t.Partitions = 1
	}
	return t, nil
}
