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

import "strings"

type Token int

const (
	// Special tokens
	ILLEGAL Token = iota
	EOF
	WS
	COMMENT

	// Literals
	IDENT     // main
	INTEGER   // 12345
	NUMBER    // 12345.67
	STRING    // 'abc'
	BADSTRING // 'abc

	operatorBeg
	// ADD and the following are InfluxQL Operators
	ADD // +
	SUB // -
	MUL // *
	DIV // /
	MOD // %

	AND // AND
	OR  // OR

	EQ  // =
	NEQ // <> or !=
	LT  // <
	LTE // <=
	GT  // >
	GTE // >=

	LIKE    // LIKE
	NOTLIKE // NOT LIKE
	operatorEnd

	// Misc characters
	ASTERISK  // *
	COMMA     // ,
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	DOT       // .
	SEMICOLON // ;

	// Keywords
	SELECT
	FROM
	WHERE
	GROUP
	BY
	HAVING
	AS
	NOT
	IS
	NULL
	TRUE
	FALSE

	WINDOW
	TUMBLING
	HOPPING
	SESSION
	SIZE
	ADVANCE

	CREATE
	DROP
	SHOW
	DESCRIBE
	TERMINATE
	STREAM
	STREAMS
	TABLE
	TABLES
	QUERIES
	WITH

	DAY
	HOUR
	MINUTE
	SECOND
	MILLISECOND
)

var Tokens = []string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",
	WS:      "WS",
	COMMENT: "COMMENT",

	IDENT:     "IDENT",
	INTEGER:   "INTEGER",
	NUMBER:    "NUMBER",
	STRING:    "STRING",
	BADSTRING: "BADSTRING",

	ADD: "+",
	SUB: "-",
	MUL: "*",
	DIV: "/",
	MOD: "%",

	AND: "AND",
	OR:  "OR",

	EQ:  "=",
	NEQ: "<>",
	LT:  "<",
	LTE: "<=",
	GT:  ">",
	GTE: ">=",

	LIKE:    "LIKE",
	NOTLIKE: "NOT LIKE",

	ASTERISK:  "*",
	COMMA:     ",",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACKET:  "[",
	RBRACKET:  "]",
	DOT:       ".",
	SEMICOLON: ";",

	SELECT: "SELECT",
	FROM:   "FROM",
	WHERE:  "WHERE",
	GROUP:  "GROUP",
	BY:     "BY",
	HAVING: "HAVING",
	AS:     "AS",
	NOT:    "NOT",
	IS:     "IS",
	NULL:   "NULL",
	TRUE:   "TRUE",
	FALSE:  "FALSE",

	WINDOW:   "WINDOW",
	TUMBLING: "TUMBLING",
	HOPPING:  "HOPPING",
	SESSION:  "SESSION",
	SIZE:     "SIZE",
	ADVANCE:  "ADVANCE",

	CREATE:    "CREATE",
	DROP:      "DROP",
	SHOW:      "SHOW",
	DESCRIBE:  "DESCRIBE",
	TERMINATE: "TERMINATE",
	STREAM:    "STREAM",
	STREAMS:   "STREAMS",
	TABLE:     "TABLE",
	TABLES:    "TABLES",
	QUERIES:   "QUERIES",
	WITH:      "WITH",

	DAY:         "DAY",
	HOUR:        "HOUR",
	MINUTE:      "MINUTE",
	SECOND:      "SECOND",
	MILLISECOND: "MILLISECOND",
}

var keywords map[string]Token

func init() {
	keywords = make(map[string]Token)
	for tok := SELECT; tok <= MILLISECOND; tok++ {
		keywords[Tokens[tok]] = tok
	}
	keywords[Tokens[AND]] = AND
	keywords[Tokens[OR]] = OR
	keywords[Tokens[LIKE]] = LIKE
	for _, unit := range []Token{DAY, HOUR, MINUTE, SECOND, MILLISECOND} {
		keywords[Tokens[unit]+"S"] = unit
	}
}

// Lookup returns the keyword token of an identifier or IDENT.
func Lookup(ident string) Token {
	if tok, ok := keywords[strings.ToUpper(ident)]; ok {
		return tok
	}
	return IDENT
}

func (tok Token) String() string {
	if tok >= 0 && tok < Token(len(Tokens)) {
		return Tokens[tok]
	}
	return ""
}

func (tok Token) IsOperator() bool {
	return tok > operatorBeg && tok < operatorEnd
}

func (tok Token) IsTimeUnit() bool {
	return tok >= DAY && tok <= MILLISECOND
}

func (tok Token) IsComparison() bool {
	return tok >= EQ && tok <= GTE
}

func (tok Token) Precedence() int {
	switch tok {
	case OR:
		return 1
	case AND:
		return 2
	case EQ, NEQ, LT, LTE, GT, GTE, LIKE, NOTLIKE:
		return 3
	case ADD, SUB:
		return 4
	case MUL, DIV, MOD:
		return 5
	}
	return 0
}
