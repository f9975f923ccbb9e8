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

package xsql

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/golang-collections/collections/stack"

	"github.com/lf-edge/kql/pkg/ast"
	"github.com/lf-edge/kql/pkg/errorx"
)

// DEFAULT_FIELD_NAME_PREFIX names the projections that are neither aliased nor a plain column.
const DEFAULT_FIELD_NAME_PREFIX = "KSQL_COL_"

type Parser struct {
	s *Scanner

	i   int // buffer index
	n   int // buffer char count
	buf [3]struct {
		tok ast.Token
		lit string
	}
	clause string
}

func NewParser(r io.Reader) *Parser {
	return &Parser{s: NewScanner(r)}
}

// Parse parses a single statement.
func Parse(sql string) (ast.Statement, error) {
	stmts, err := ParseStatements(sql)
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, errorx.NewParserError(fmt.Sprintf("expect one statement but found %d", len(stmts)))
	}
	return stmts[0], nil
}

// ParseStatements parses the semicolon separated statements of sql.
func ParseStatements(sql string) ([]ast.Statement, error) {
	p := NewParser(strings.NewReader(sql))
	var stmts []ast.Statement
	for {
		if tok, _ := p.scanIgnoreWhitespace(); tok == ast.EOF {
			return stmts, nil
		} else if tok == ast.SEMICOLON {
			continue
		}
		p.unscan()
		start := p.s.Offset() - len(p.buf[p.i].lit)
		stmt, err := p.ParseStatement()
		if err != nil {
			return nil, wrapParserError(err)
		}
		end := len(sql)
		switch tok, lit := p.scanIgnoreWhitespace(); tok {
		case ast.SEMICOLON:
			end = p.s.Offset() - 1
		case ast.EOF:
		default:
			return nil, errorx.NewParserError(fmt.Sprintf("found %q, expected semicolon or EOF.", lit))
		}
		if csas, ok := stmt.(*ast.CreateStreamAsSelect); ok {
			csas.Text = strings.TrimSpace(sql[clampOffset(start, len(sql)):clampOffset(end, len(sql))])
		}
		stmts = append(stmts, stmt)
	}
}

func clampOffset(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func wrapParserError(err error) error {
	if _, ok := errorx.GetErrorCode(err); ok {
		return err
	}
	return errorx.NewParserError(err.Error())
}

// ParseExpr parses a standalone scalar expression.
func ParseExpr(text string) (ast.Expr, error) {
	p := NewParser(strings.NewReader(text))
	expr, err := p.ParseExpr()
	if err != nil {
		return nil, wrapParserError(err)
	}
	if tok, lit := p.scanIgnoreWhitespace(); tok != ast.EOF {
		return nil, errorx.NewParserError(fmt.Sprintf("found %q, expected EOF.", lit))
	}
	return expr, nil
}

func (p *Parser) scan() (tok ast.Token, lit string) {
	if p.n > 0 {
		p.n--
		return p.curr()
	}

	tok, lit = p.s.Scan()

	if tok != ast.WS && tok != ast.COMMENT {
		p.i = (p.i + 1) % len(p.buf)
		buf := &p.buf[p.i]
		buf.tok, buf.lit = tok, lit
	}

	return
}

func (p *Parser) curr() (ast.Token, string) {
	i := (p.i - p.n + len(p.buf)) % len(p.buf)
	buf := &p.buf[i]
	return buf.tok, buf.lit
}

func (p *Parser) scanIgnoreWhitespace() (tok ast.Token, lit string) {
	tok, lit = p.scan()

	for {
		if tok == ast.WS || tok == ast.COMMENT {
			tok, lit = p.scan()
		} else {
			break
		}
	}
	return tok, lit
}

func (p *Parser) unscan() { p.n++ }

// ParseStatement parses one statement without its terminating semicolon.
func (p *Parser) ParseStatement() (ast.Statement, error) {
	tok, lit := p.scanIgnoreWhitespace()
	switch tok {
	case ast.CREATE:
		return p.parseCreateStmt()
	case ast.DROP:
		return p.parseDropStmt()
	case ast.SHOW:
		return p.parseShowStmt()
	case ast.DESCRIBE:
		return p.parseDescribeStmt()
	case ast.TERMINATE:
		return p.parseTerminateStmt()
	case ast.SELECT:
		p.unscan()
		return p.ParseSelect()
	default:
		return nil, fmt.Errorf("found %q, expected CREATE, DROP, SHOW, DESCRIBE or TERMINATE.", lit)
	}
}

func (p *Parser) parseCreateStmt() (ast.Statement, error) {
	tok, lit := p.scanIgnoreWhitespace()
	var st ast.StreamType
	switch tok {
	case ast.STREAM:
		st = ast.TypeStream
	case ast.TABLE:
		st = ast.TypeTable
	default:
		return nil, fmt.Errorf("found %q, expected keyword stream or table.", lit)
	}
	name, err := p.parseName("stream name")
	if err != nil {
		return nil, err
	}
	tok, lit = p.scanIgnoreWhitespace()
	switch tok {
	case ast.LPAREN:
		p.unscan()
		stmt := &ast.StreamStmt{Name: name, StreamType: st}
		if stmt.Columns, err = p.parseColumnDefs(); err != nil {
			return nil, err
		}
		if tok1, lit1 := p.scanIgnoreWhitespace(); tok1 != ast.WITH {
			return nil, fmt.Errorf("found %q, expected WITH.", lit1)
		}
		if stmt.Options, err = p.parseOptions(); err != nil {
			return nil, err
		}
		return stmt, nil
	case ast.WITH, ast.AS:
		if st == ast.TypeTable {
			return nil, errorx.NewInvalidStatement("CREATE TABLE AS SELECT is not supported, use CREATE STREAM AS SELECT")
		}
		stmt := &ast.CreateStreamAsSelect{Name: name, Options: &ast.Options{}}
		if tok == ast.WITH {
			if stmt.Options, err = p.parseOptions(); err != nil {
				return nil, err
			}
			if tok1, lit1 := p.scanIgnoreWhitespace(); tok1 != ast.AS {
				return nil, fmt.Errorf("found %q, expected AS.", lit1)
			}
		}
		if stmt.Select, err = p.ParseSelect(); err != nil {
			return nil, err
		}
		return stmt, nil
	default:
		return nil, fmt.Errorf("found %q, expected column definitions, WITH or AS.", lit)
	}
}

func (p *Parser) parseName(what string) (string, error) {
	if tok, lit := p.scanIgnoreWhitespace(); tok == ast.IDENT {
		return lit, nil
	} else {
		return "", fmt.Errorf("found %q, expected %s.", lit, what)
	}
}

// parseColumnDefs parses (name type, ...). The type is read up to the next
// comma or right paren outside of angle brackets and parsed as a model type.
func (p *Parser) parseColumnDefs() ([]ast.ColumnDef, error) {
	if tok, lit := p.scanIgnoreWhitespace(); tok != ast.LPAREN {
		return nil, fmt.Errorf("found %q, expected lparen after stream name.", lit)
	}
	var cols []ast.ColumnDef
	for {
		name, err := p.parseName("column name")
		if err != nil {
			return nil, err
		}
		lStack := &stack.Stack{}
		var typ strings.Builder
		for {
			tok, lit := p.scanIgnoreWhitespace()
			switch tok {
			case ast.EOF:
				return nil, fmt.Errorf("found EOF, expected type of column %s.", name)
			case ast.LT:
				lStack.Push(tok)
			case ast.GT:
				if lStack.Len() == 0 {
					return nil, fmt.Errorf("angle brackets are not matched in type of column %s.", name)
				}
				lStack.Pop()
			case ast.COMMA, ast.RPAREN:
				if lStack.Len() == 0 {
					p.unscan()
					goto done
				}
			}
			typ.WriteString(lit)
		}
	done:
		if typ.Len() == 0 {
			return nil, fmt.Errorf("missing type of column %s.", name)
		}
		cols = append(cols, ast.ColumnDef{Name: name, Type: typ.String()})
		if tok, lit := p.scanIgnoreWhitespace(); tok == ast.RPAREN {
			return cols, nil
		} else if tok != ast.COMMA {
			return nil, fmt.Errorf("found %q, expect comma or rparen.", lit)
		}
	}
}

// parseOptions parses (NAME=literal, ...)
func (p *Parser) parseOptions() (*ast.Options, error) {
	opts := &ast.Options{}
	if tok, lit := p.scanIgnoreWhitespace(); tok != ast.LPAREN {
		return nil, fmt.Errorf("found %q, expect stream options.", lit)
	}
	for {
		tok, lit := p.scanIgnoreWhitespace()
		if tok == ast.RPAREN {
			return opts, nil
		} else if tok == ast.COMMA {
			continue
		} else if tok != ast.IDENT {
			return nil, fmt.Errorf("found %q, expect option name.", lit)
		}
		if tok1, lit1 := p.scanIgnoreWhitespace(); tok1 != ast.EQ {
			return nil, fmt.Errorf("found %q, expect equals(=) in options.", lit1)
		}
		var val ast.Literal
		switch tok2, lit2 := p.scanIgnoreWhitespace(); tok2 {
		case ast.STRING:
			val = &ast.StringLiteral{Val: lit2}
		case ast.INTEGER:
			i, err := strconv.ParseInt(lit2, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("found %q, invalid integer value.", lit2)
			}
			val = &ast.IntegerLiteral{Val: i}
		default:
			return nil, fmt.Errorf("found %q, expect string or integer value in option.", lit2)
		}
		if err := opts.Set(lit, val); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) parseDropStmt() (ast.Statement, error) {
	stmt := &ast.DropStreamStatement{}
	switch tok, lit := p.scanIgnoreWhitespace(); tok {
	case ast.STREAM:
		stmt.StreamType = ast.TypeStream
	case ast.TABLE:
		stmt.StreamType = ast.TypeTable
	default:
		return nil, fmt.Errorf("found %q, expected keyword stream or table.", lit)
	}
	name, err := p.parseName(stmt.StreamType.String() + " name")
	if err != nil {
		return nil, err
	}
	stmt.Name = name
	return stmt, nil
}

func (p *Parser) parseShowStmt() (ast.Statement, error) {
	switch tok, lit := p.scanIgnoreWhitespace(); tok {
	case ast.STREAMS, ast.TABLES, ast.QUERIES:
		return &ast.ShowStatement{What: tok}, nil
	default:
		return nil, fmt.Errorf("found %q, expected keyword streams, tables or queries.", lit)
	}
}

func (p *Parser) parseDescribeStmt() (ast.Statement, error) {
	// the STREAM or TABLE keyword is optional
	if tok, _ := p.scanIgnoreWhitespace(); tok != ast.STREAM && tok != ast.TABLE {
		p.unscan()
	}
	name, err := p.parseName("stream name")
	if err != nil {
		return nil, err
	}
	return &ast.DescribeStatement{Name: name}, nil
}

func (p *Parser) parseTerminateStmt() (ast.Statement, error) {
	id, err := p.parseName("query id")
	if err != nil {
		return nil, err
	}
	return &ast.TerminateStatement{QueryID: id}, nil
}

// ParseSelect parses SELECT ... FROM src [WINDOW] [WHERE] [WINDOW] [GROUP BY] [HAVING].
// The window clause may come before or after WHERE.
func (p *Parser) ParseSelect() (*ast.SelectStatement, error) {
	selects := &ast.SelectStatement{}

	if tok, lit := p.scanIgnoreWhitespace(); tok != ast.SELECT {
		return nil, fmt.Errorf("found %q, expected SELECT.", lit)
	}
	p.clause = "select"
	if fields, err := p.parseFields(); err != nil {
		return nil, err
	} else {
		selects.Fields = fields
	}
	p.clause = "from"
	if tok, lit := p.scanIgnoreWhitespace(); tok != ast.FROM {
		return nil, fmt.Errorf("found %q, expected FROM.", lit)
	}
	if src, err := p.parseName("source name"); err != nil {
		return nil, err
	} else {
		selects.Source = src
	}
	p.clause = "window"
	if w, err := p.parseWindow(); err != nil {
		return nil, err
	} else {
		selects.Window = w
	}
	p.clause = "where"
	if exp, err := p.parseCondition(); err != nil {
		return nil, err
	} else {
		selects.Condition = exp
	}
	p.clause = "window"
	if w, err := p.parseWindow(); err != nil {
		return nil, err
	} else if w != nil {
		if selects.Window != nil {
			return nil, errorx.NewInvalidStatement("duplicate WINDOW clause")
		}
		selects.Window = w
	}
	p.clause = "groupby"
	if dims, err := p.parseDimensions(); err != nil {
		return nil, err
	} else {
		selects.Dimensions = dims
	}
	p.clause = "having"
	if having, err := p.parseHaving(); err != nil {
		return nil, err
	} else {
		selects.Having = having
	}
	p.clause = ""
	return selects, nil
}

func (p *Parser) parseFields() (ast.Fields, error) {
	var fields ast.Fields

	tok, _ := p.scanIgnoreWhitespace()
	if tok == ast.ASTERISK {
		fields = append(fields, ast.Field{Expr: &ast.Wildcard{Token: tok}})
		return fields, nil
	}
	p.unscan()

	for {
		field, err := p.parseField(len(fields))
		if err != nil {
			return nil, err
		}
		fields = append(fields, *field)

		tok, _ = p.scanIgnoreWhitespace()
		if tok != ast.COMMA {
			p.unscan()
			break
		}
	}
	return fields, nil
}

func (p *Parser) parseField(index int) (*ast.Field, error) {
	field := &ast.Field{}
	if exp, err := p.ParseExpr(); err != nil {
		return nil, err
	} else {
		field.Expr = exp
	}

	if alias, err := p.parseAlias(); err != nil {
		return nil, err
	} else if alias != "" {
		field.AName = alias
		field.Name = alias
	} else if fr, ok := ast.StripParen(field.Expr).(*ast.FieldRef); ok {
		field.Name = fr.Name
	} else {
		field.Name = DEFAULT_FIELD_NAME_PREFIX + strconv.Itoa(index)
	}
	return field, nil
}

func (p *Parser) parseAlias() (string, error) {
	tok, lit := p.scanIgnoreWhitespace()
	if tok == ast.AS {
		if tok, lit = p.scanIgnoreWhitespace(); tok != ast.IDENT {
			return "", fmt.Errorf("found %q, expected as alias.", lit)
		} else {
			return lit, nil
		}
	}
	p.unscan()
	return "", nil
}

func (p *Parser) parseCondition() (ast.Expr, error) {
	if tok, _ := p.scanIgnoreWhitespace(); tok != ast.WHERE {
		p.unscan()
		return nil, nil
	}
	return p.ParseExpr()
}

func (p *Parser) parseWindow() (*ast.Window, error) {
	if tok, _ := p.scanIgnoreWhitespace(); tok != ast.WINDOW {
		p.unscan()
		return nil, nil
	}
	w := &ast.Window{}
	switch tok, lit := p.scanIgnoreWhitespace(); tok {
	case ast.TUMBLING:
		w.WindowType = ast.TUMBLING_WINDOW
	case ast.HOPPING:
		w.WindowType = ast.HOPPING_WINDOW
	case ast.SESSION:
		return nil, errorx.NewInvalidStatement("SESSION window is not supported")
	default:
		return nil, fmt.Errorf("found %q, expected TUMBLING or HOPPING.", lit)
	}
	if tok, lit := p.scanIgnoreWhitespace(); tok != ast.LPAREN {
		return nil, fmt.Errorf("found %q, expected (.", lit)
	}
	if tok, lit := p.scanIgnoreWhitespace(); tok != ast.SIZE {
		return nil, fmt.Errorf("found %q, expected SIZE.", lit)
	}
	d, err := p.parseDuration()
	if err != nil {
		return nil, err
	}
	w.Length = d
	if w.WindowType == ast.HOPPING_WINDOW {
		if tok, lit := p.scanIgnoreWhitespace(); tok != ast.COMMA {
			return nil, fmt.Errorf("found %q, expected comma.", lit)
		}
		if tok, lit := p.scanIgnoreWhitespace(); tok != ast.ADVANCE {
			return nil, fmt.Errorf("found %q, expected ADVANCE.", lit)
		}
		if tok, lit := p.scanIgnoreWhitespace(); tok != ast.BY {
			return nil, fmt.Errorf("found %q, expected BY.", lit)
		}
		if w.Interval, err = p.parseDuration(); err != nil {
			return nil, err
		}
		if w.Interval > w.Length {
			return nil, errorx.NewInvalidStatement("window advance %s must not be larger than the size %s", w.Interval, w.Length)
		}
	}
	if tok, lit := p.scanIgnoreWhitespace(); tok != ast.RPAREN {
		return nil, fmt.Errorf("found %q, expected ).", lit)
	}
	return w, nil
}

func (p *Parser) parseDuration() (time.Duration, error) {
	tok, lit := p.scanIgnoreWhitespace()
	if tok != ast.INTEGER {
		return 0, fmt.Errorf("found %q, expected window size.", lit)
	}
	n, err := strconv.ParseInt(lit, 10, 64)
	if err != nil || n <= 0 {
		return 0, errorx.NewInvalidStatement("window size must be a positive integer, but got %s", lit)
	}
	unit, lit := p.scanIgnoreWhitespace()
	var d time.Duration
	switch unit {
	case ast.MILLISECOND:
		d = time.Millisecond
	case ast.SECOND:
		d = time.Second
	case ast.MINUTE:
		d = time.Minute
	case ast.HOUR:
		d = time.Hour
	case ast.DAY:
		d = 24 * time.Hour
	default:
		return 0, fmt.Errorf("found %q, expected time unit.", lit)
	}
	return time.Duration(n) * d, nil
}

func (p *Parser) parseDimensions() (ast.Dimensions, error) {
	if t, _ := p.scanIgnoreWhitespace(); t != ast.GROUP {
		p.unscan()
		return nil, nil
	}
	if t1, l1 := p.scanIgnoreWhitespace(); t1 != ast.BY {
		return nil, fmt.Errorf("found %q, expected BY.", l1)
	}
	var ds ast.Dimensions
	for {
		exp, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		ds = append(ds, exp)
		if tok, _ := p.scanIgnoreWhitespace(); tok != ast.COMMA {
			p.unscan()
			break
		}
	}
	return ds, nil
}

func (p *Parser) parseHaving() (ast.Expr, error) {
	if tok, _ := p.scanIgnoreWhitespace(); tok != ast.HAVING {
		p.unscan()
		return nil, nil
	}
	return p.ParseExpr()
}

// ParseExpr parses an expression with precedence climbing over the right spine.
func (p *Parser) ParseExpr() (ast.Expr, error) {
	expr, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}

	for {
		op, lit := p.scanIgnoreWhitespace()
		switch op {
		case ast.ASTERISK: // Change the asterisk to Mul token.
			op = ast.MUL
		case ast.NOT:
			if tok, lit1 := p.scanIgnoreWhitespace(); tok != ast.LIKE {
				return nil, fmt.Errorf("found %q, expected LIKE after NOT.", lit1)
			}
			op = ast.NOTLIKE
		case ast.IS:
			not := false
			tok, lit1 := p.scanIgnoreWhitespace()
			if tok == ast.NOT {
				not = true
				tok, lit1 = p.scanIgnoreWhitespace()
			}
			if tok != ast.NULL {
				return nil, fmt.Errorf("found %q, expected NULL.", lit1)
			}
			expr = attachIsNull(expr, not)
			continue
		}
		if !op.IsOperator() {
			p.unscan()
			return expr, nil
		}

		rhs, err := p.parseUnaryExpr()
		if err != nil {
			return nil, fmt.Errorf("parse right operand of %s: %w", lit, err)
		}
		expr = attach(expr, op, rhs)
	}
}

// notPrecedence is between AND and the comparisons.
const notPrecedence = 2

// attach adds "op rhs" to the right spine of e at the level its precedence requires.
func attach(e ast.Expr, op ast.Token, rhs ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.BinaryExpr:
		if n.OP.Precedence() < op.Precedence() {
			n.RHS = attach(n.RHS, op, rhs)
			return n
		}
	case *ast.UnaryExpr:
		if n.OP == ast.NOT && op.Precedence() > notPrecedence {
			n.Expr = attach(n.Expr, op, rhs)
			return n
		}
	}
	return &ast.BinaryExpr{OP: op, LHS: e, RHS: rhs}
}

func attachIsNull(e ast.Expr, not bool) ast.Expr {
	switch n := e.(type) {
	case *ast.BinaryExpr:
		if n.OP.Precedence() < ast.EQ.Precedence() {
			n.RHS = attachIsNull(n.RHS, not)
			return n
		}
	case *ast.UnaryExpr:
		if n.OP == ast.NOT {
			n.Expr = attachIsNull(n.Expr, not)
			return n
		}
	}
	return &ast.IsNullExpr{Expr: e, Not: not}
}

func (p *Parser) parseUnaryExpr() (ast.Expr, error) {
	tok, _ := p.scanIgnoreWhitespace()
	switch tok {
	case ast.NOT:
		expr, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{OP: ast.NOT, Expr: expr}, nil
	case ast.SUB:
		expr, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{OP: ast.SUB, Expr: expr}, nil
	case ast.ADD:
		return p.parseUnaryExpr()
	}
	p.unscan()
	expr, err := p.parsePrimaryExpr()
	if err != nil {
		return nil, err
	}
	// postfix index: arr[0], map['k'], arr[0][1]
	for {
		if tok, _ := p.scanIgnoreWhitespace(); tok != ast.LBRACKET {
			p.unscan()
			return expr, nil
		}
		index, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		if tok, lit := p.scanIgnoreWhitespace(); tok != ast.RBRACKET {
			return nil, fmt.Errorf("found %q, expected right bracket.", lit)
		}
		expr = &ast.IndexExpr{Expr: expr, Index: index}
	}
}

func (p *Parser) parsePrimaryExpr() (ast.Expr, error) {
	tok, lit := p.scanIgnoreWhitespace()
	switch tok {
	case ast.LPAREN:
		expr, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		// Expect an RPAREN at the end.
		if tok2, lit2 := p.scanIgnoreWhitespace(); tok2 != ast.RPAREN {
			return nil, fmt.Errorf("found %q, expected right paren.", lit2)
		}
		return &ast.ParenExpr{Expr: expr}, nil
	case ast.IDENT:
		if tok1, _ := p.scanIgnoreWhitespace(); tok1 == ast.LPAREN {
			return p.parseCall(lit)
		}
		p.unscan()
		return &ast.FieldRef{Name: lit}, nil
	case ast.STRING:
		return &ast.StringLiteral{Val: lit}, nil
	case ast.INTEGER:
		val, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("found %q, invalid integer value.", lit)
		}
		return &ast.IntegerLiteral{Val: val}, nil
	case ast.NUMBER:
		if v, err := strconv.ParseFloat(lit, 64); err != nil {
			return nil, fmt.Errorf("found %q, invalid number value.", lit)
		} else {
			return &ast.NumberLiteral{Val: v}, nil
		}
	case ast.TRUE, ast.FALSE:
		return &ast.BooleanLiteral{Val: tok == ast.TRUE}, nil
	case ast.NULL:
		return &ast.NullLiteral{}, nil
	case ast.BADSTRING:
		return nil, fmt.Errorf("found unterminated string %q.", lit)
	case ast.EOF:
		return nil, fmt.Errorf("found EOF, expected expression.")
	}
	return nil, fmt.Errorf("found %q, expected expression.", lit)
}

func (p *Parser) parseCall(name string) (ast.Expr, error) {
	var args []ast.Expr
	if tok, _ := p.scanIgnoreWhitespace(); tok == ast.RPAREN {
		return &ast.Call{Name: strings.ToUpper(name), Args: args}, nil
	} else if tok == ast.ASTERISK {
		args = append(args, &ast.Wildcard{Token: tok})
		if tok1, lit1 := p.scanIgnoreWhitespace(); tok1 != ast.RPAREN {
			return nil, fmt.Errorf("found %q, expected ) after *.", lit1)
		}
		return &ast.Call{Name: strings.ToUpper(name), Args: args}, nil
	}
	p.unscan()
	for {
		exp, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, exp)
		if tok, _ := p.scanIgnoreWhitespace(); tok != ast.COMMA {
			p.unscan()
			break
		}
	}
	if tok, lit := p.scanIgnoreWhitespace(); tok != ast.RPAREN {
		return nil, fmt.Errorf("found function call %q, expected ), but with %q.", name, lit)
	}
	return &ast.Call{Name: strings.ToUpper(name), Args: args}, nil
}
