// Package lexer turns PL/0 source text into a token stream.
//
// Decomposition (one method per character class, a makeError-style
// diagnostic constructor) is grounded on the teacher's
// compiler/tokenizer.go getNextToken/tokenSimpleSymbol/
// toKeywordOrIdentifier family. Character classification is delegated to
// util, adapted from the teacher's own util package.
package lexer

import (
	"strconv"
	"strings"

	"github.com/xiaobogaga/plzero/internal/diag"
	"github.com/xiaobogaga/plzero/internal/token"
	"github.com/xiaobogaga/plzero/util"
)

const maxInt = int(^uint(0) >> 1)

// Lexer scans a whole source string into a token slice up front; the
// parser consumes it by index, same as the teacher's Parser holding a
// fully-tokenized []*Token.
type Lexer struct {
	src  []byte
	pos  int
	line int
	sink *diag.Sink
}

func New(src string, sink *diag.Sink) *Lexer {
	return &Lexer{src: []byte(src), pos: 0, line: 1, sink: sink}
}

// Tokenize produces the full token stream, terminated by an EOF token.
// Lexical errors are appended to the sink and the lexer resynchronizes
// by skipping the offending character, per spec.
func (l *Lexer) Tokenize() []token.Token {
	var toks []token.Token
	for {
		t, ok := l.next()
		if ok {
			toks = append(toks, t)
			if t.Kind == token.EOF {
				return toks
			}
		}
	}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
	}
	return c
}

// next scans one token. The bool return is false only when the current
// character was consumed purely for error recovery and produced no
// token (so the caller should loop again without appending anything).
func (l *Lexer) next() (token.Token, bool) {
	l.skipSpaceAndComments()
	startLine := l.line
	if l.pos >= len(l.src) {
		return token.Token{Kind: token.EOF, Line: startLine}, true
	}
	c := l.peek()
	switch {
	case util.IsLetter(c):
		return l.scanIdentifierOrKeyword(startLine), true
	case util.IsNumber(c):
		return l.scanInteger(startLine), true
	default:
		return l.scanOperatorOrPunct(startLine)
	}
}

// skipSpaceAndComments consumes whitespace and nested (* ... *) comments.
// An unclosed comment is a lexical error reported at the line it opened.
func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.peek()
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			l.advance()
			continue
		}
		if c == '(' && l.peekAt(1) == '*' {
			l.skipComment()
			continue
		}
		break
	}
}

func (l *Lexer) skipComment() {
	openLine := l.line
	depth := 0
	l.advance() // (
	l.advance() // *
	depth++
	for depth > 0 {
		if l.pos >= len(l.src) {
			l.sink.Errorf(diag.Lexical, openLine, "unterminated comment")
			return
		}
		if l.peek() == '(' && l.peekAt(1) == '*' {
			l.advance()
			l.advance()
			depth++
			continue
		}
		if l.peek() == '*' && l.peekAt(1) == ')' {
			l.advance()
			l.advance()
			depth--
			continue
		}
		l.advance()
	}
}

func (l *Lexer) scanIdentifierOrKeyword(line int) token.Token {
	start := l.pos
	for l.pos < len(l.src) && util.IsLetterOrNumber(l.peek()) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	if kind, ok := token.Lookup(strings.ToLower(lexeme)); ok {
		return token.Token{Kind: kind, Line: line}
	}
	return token.Token{Kind: token.Identifier, Lexeme: lexeme, Line: line}
}

func (l *Lexer) scanInteger(line int) token.Token {
	start := l.pos
	for l.pos < len(l.src) && util.IsNumber(l.peek()) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	v, err := strconv.Atoi(lexeme)
	if err != nil || v < 0 || v > maxInt {
		l.sink.Errorf(diag.Lexical, line, "integer literal '%s' overflows", lexeme)
		return token.Token{Kind: token.Integer, IntVal: 0, Line: line}
	}
	return token.Token{Kind: token.Integer, IntVal: v, Line: line}
}

// scanOperatorOrPunct handles the two-char lookahead operators and
// single-char punctuation/operators. Returns ok=false (token skipped)
// when the character is unrecognized or a lone ':'.
func (l *Lexer) scanOperatorOrPunct(line int) (token.Token, bool) {
	c := l.advance()
	switch c {
	case '.':
		return token.Token{Kind: token.Dot, Line: line}, true
	case ',':
		return token.Token{Kind: token.Comma, Line: line}, true
	case ';':
		return token.Token{Kind: token.Semicolon, Line: line}, true
	case '(':
		return token.Token{Kind: token.LParen, Line: line}, true
	case ')':
		return token.Token{Kind: token.RParen, Line: line}, true
	case '+':
		return token.Token{Kind: token.Plus, Line: line}, true
	case '-':
		return token.Token{Kind: token.Minus, Line: line}, true
	case '*':
		return token.Token{Kind: token.Star, Line: line}, true
	case '/':
		return token.Token{Kind: token.Slash, Line: line}, true
	case '=':
		return token.Token{Kind: token.Equal, Line: line}, true
	case ':':
		if l.peek() == '=' {
			l.advance()
			return token.Token{Kind: token.Assign, Line: line}, true
		}
		l.sink.Errorf(diag.Lexical, line, "malformed operator: lone ':'")
		return token.Token{}, false
	case '<':
		switch l.peek() {
		case '=':
			l.advance()
			return token.Token{Kind: token.LessEqual, Line: line}, true
		case '>':
			l.advance()
			return token.Token{Kind: token.NotEqual, Line: line}, true
		default:
			return token.Token{Kind: token.Less, Line: line}, true
		}
	case '>':
		if l.peek() == '=' {
			l.advance()
			return token.Token{Kind: token.GreaterEqual, Line: line}, true
		}
		return token.Token{Kind: token.Greater, Line: line}, true
	default:
		l.sink.Errorf(diag.Lexical, line, "unknown character '%c'", c)
		return token.Token{}, false
	}
}
