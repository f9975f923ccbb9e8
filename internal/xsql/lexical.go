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
	"bufio"
	"bytes"
	"io"

	"github.com/lf-edge/kql/pkg/ast"
)

type Scanner struct {
	r *bufio.Reader
	// pos is the byte offset of the next rune
	pos      int
	lastSize int
}

func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// Offset returns the byte offset right after the last scanned rune.
func (s *Scanner) Offset() int {
	return s.pos
}

func (s *Scanner) Scan() (tok ast.Token, lit string) {
	ch := s.read()
	if isWhiteSpace(ch) {
		return s.ScanWhiteSpace()
	} else if isLetter(ch) || ch == '_' {
		s.unread()
		return s.ScanIdent()
	} else if ch == '\'' {
		return s.ScanString()
	} else if ch == '"' || ch == '`' {
		return s.ScanQuotedIdent(ch)
	} else if isDigit(ch) {
		s.unread()
		return s.ScanNumber(false)
	}

	switch ch {
	case eof:
		return ast.EOF, ""
	case '=':
		return ast.EQ, ast.Tokens[ast.EQ]
	case '!':
		if r := s.read(); r == '=' {
			return ast.NEQ, ast.Tokens[ast.NEQ]
		}
		s.unread()
		return ast.ILLEGAL, "!"
	case '<':
		if r := s.read(); r == '=' {
			return ast.LTE, ast.Tokens[ast.LTE]
		} else if r == '>' {
			return ast.NEQ, ast.Tokens[ast.NEQ]
		}
		s.unread()
		return ast.LT, ast.Tokens[ast.LT]
	case '>':
		if r := s.read(); r == '=' {
			return ast.GTE, ast.Tokens[ast.GTE]
		}
		s.unread()
		return ast.GT, ast.Tokens[ast.GT]
	case '+':
		return ast.ADD, ast.Tokens[ast.ADD]
	case '-':
		if r := s.read(); r == '-' {
			s.skipUntilNewline()
			return ast.COMMENT, ""
		}
		s.unread()
		return ast.SUB, ast.Tokens[ast.SUB]
	case '/':
		if r := s.read(); r == '*' {
			if err := s.skipUntilEndComment(); err != nil {
				return ast.ILLEGAL, ""
			}
			return ast.COMMENT, ""
		}
		s.unread()
		return ast.DIV, ast.Tokens[ast.DIV]
	case '.':
		if r := s.read(); isDigit(r) {
			s.unread()
			return s.ScanNumber(true)
		}
		s.unread()
		return ast.DOT, ast.Tokens[ast.DOT]
	case '%':
		return ast.MOD, ast.Tokens[ast.MOD]
	case '*':
		return ast.ASTERISK, ast.Tokens[ast.ASTERISK]
	case ',':
		return ast.COMMA, ast.Tokens[ast.COMMA]
	case '(':
		return ast.LPAREN, ast.Tokens[ast.LPAREN]
	case ')':
		return ast.RPAREN, ast.Tokens[ast.RPAREN]
	case '[':
		return ast.LBRACKET, ast.Tokens[ast.LBRACKET]
	case ']':
		return ast.RBRACKET, ast.Tokens[ast.RBRACKET]
	case ';':
		return ast.SEMICOLON, ast.Tokens[ast.SEMICOLON]
	}
	return ast.ILLEGAL, string(ch)
}

func (s *Scanner) ScanWhiteSpace() (tok ast.Token, lit string) {
	var buf bytes.Buffer
	for {
		if ch := s.read(); ch == eof {
			break
		} else if !isWhiteSpace(ch) {
			s.unread()
			break
		} else {
			buf.WriteRune(ch)
		}
	}
	return ast.WS, buf.String()
}

// ScanIdent returns the keyword token or IDENT. Keywords are returned upper
// cased, identifiers as written.
func (s *Scanner) ScanIdent() (tok ast.Token, lit string) {
	var buf bytes.Buffer
	buf.WriteRune(s.read())
	for {
		if ch := s.read(); ch == eof {
			break
		} else if !isLetter(ch) && !isDigit(ch) && ch != '_' {
			s.unread()
			break
		} else {
			buf.WriteRune(ch)
		}
	}
	lit = buf.String()
	if tok = ast.Lookup(lit); tok != ast.IDENT {
		return tok, ast.Tokens[tok]
	}
	return ast.IDENT, lit
}

// ScanString scans a single quoted string. A doubled quote is an escaped quote.
func (s *Scanner) ScanString() (tok ast.Token, lit string) {
	var buf bytes.Buffer
	for {
		ch := s.read()
		if ch == eof {
			return ast.BADSTRING, buf.String()
		}
		if ch == '\'' {
			if next := s.read(); next == '\'' {
				buf.WriteRune('\'')
				continue
			}
			s.unread()
			break
		}
		buf.WriteRune(ch)
	}
	return ast.STRING, buf.String()
}

// ScanQuotedIdent scans an identifier quoted with " or `, which is never a keyword.
func (s *Scanner) ScanQuotedIdent(quote rune) (tok ast.Token, lit string) {
	var buf bytes.Buffer
	for {
		ch := s.read()
		if ch == eof {
			return ast.ILLEGAL, buf.String()
		}
		if ch == quote {
			break
		}
		buf.WriteRune(ch)
	}
	return ast.IDENT, buf.String()
}

func (s *Scanner) ScanNumber(startWithDot bool) (tok ast.Token, lit string) {
	var buf bytes.Buffer

	if startWithDot {
		buf.WriteRune('.')
	}

	isNum := startWithDot
	for {
		if ch := s.read(); isDigit(ch) {
			buf.WriteRune(ch)
		} else if ch == '.' && !isNum {
			isNum = true
			buf.WriteRune(ch)
		} else {
			s.unread()
			break
		}
	}
	if isNum {
		return ast.NUMBER, buf.String()
	}
	return ast.INTEGER, buf.String()
}

func (s *Scanner) skipUntilNewline() {
	for {
		if ch := s.read(); ch == '\n' || ch == eof {
			return
		}
	}
}

func (s *Scanner) skipUntilEndComment() error {
	for {
		if ch1 := s.read(); ch1 == '*' {
			// We might be at the end.
		star:
			ch2 := s.read()
			if ch2 == '/' {
				return nil
			} else if ch2 == '*' {
				// We are back in the state machine since we see a star.
				goto star
			} else if ch2 == eof {
				return io.EOF
			}
		} else if ch1 == eof {
			return io.EOF
		}
	}
}

func (s *Scanner) read() rune {
	ch, size, err := s.r.ReadRune()
	if err != nil {
		s.lastSize = 0
		return eof
	}
	s.pos += size
	s.lastSize = size
	return ch
}

func (s *Scanner) unread() {
	if s.lastSize == 0 {
		return
	}
	_ = s.r.UnreadRune()
	s.pos -= s.lastSize
	s.lastSize = 0
}

var eof = rune(0)

func isWhiteSpace(r rune) bool {
	return (r == ' ') || (r == '\t') || (r == '\r') || (r == '\n')
}

func isLetter(ch rune) bool { return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') }

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }
