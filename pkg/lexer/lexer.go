// Package lexer implements the Gemini language tokenizer.
package lexer

import (
	"fmt"

	"github.com/thomasrohde/gemini/pkg/ast"
	"github.com/thomasrohde/gemini/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokVar TokenType = iota
	TokPrint
	TokIf
	TokElse
	TokWhile
	TokFor
	TokFunction
	TokReturn
	TokImport
	TokAs
	TokTrue
	TokFalse

	// Literals
	TokNumber
	TokString

	// Identifiers
	TokIdent

	// Punctuation
	TokLParen    // (
	TokRParen    // )
	TokLBrace    // {
	TokRBrace    // }
	TokLBracket  // [
	TokRBracket  // ]
	TokSemicolon // ;
	TokComma     // ,
	TokDot       // .
	TokEquals    // =

	// Comparison operators
	TokEqEq   // ==
	TokBangEq // !=
	TokGt     // >
	TokGtEq   // >=
	TokLt     // <
	TokLtEq   // <=

	// Arithmetic operators
	TokPlus    // +
	TokMinus   // -
	TokStar    // *
	TokSlash   // /
	TokPercent // %

	// Special
	TokEOF
)

// Token represents a single lexer token. Value is a slice of the source
// text; string tokens keep their quotes.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

// Line returns the 1-based line the token starts on.
func (t Token) Line() int {
	return t.Span.StartLine
}

var keywords = map[string]TokenType{
	"var":      TokVar,
	"print":    TokPrint,
	"if":       TokIf,
	"else":     TokElse,
	"while":    TokWhile,
	"for":      TokFor,
	"function": TokFunction,
	"return":   TokReturn,
	"import":   TokImport,
	"as":       TokAs,
	"true":     TokTrue,
	"false":    TokFalse,
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) skipWhitespaceAndComments() {
	for !s.atEnd() {
		ch := s.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			s.advance()
		} else if ch == '/' && s.peekAt(1) == '/' {
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		} else {
			break
		}
	}
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

func (s *scanner) scanString() (Token, error) {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	s.advance() // consume opening "

	for !s.atEnd() {
		ch := s.peek()
		if ch == '"' {
			s.advance() // consume closing "
			return Token{
				Type:  TokString,
				Value: s.source[startPos:s.pos],
				Span:  s.span(startLine, startCol),
			}, nil
		}
		if ch == '\n' {
			return Token{}, s.lexError(startLine, startCol, "unterminated string literal")
		}
		s.advance()
	}
	return Token{}, s.lexError(startLine, startCol, "unterminated string literal")
}

func (s *scanner) scanNumber() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() && isDigit(s.peek()) {
		s.advance()
	}

	// Fractional part only when a digit follows the dot, so "1.x" stays a property read.
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		s.advance() // consume '.'
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance()
		}
	}

	return Token{
		Type:  TokNumber,
		Value: s.source[startPos:s.pos],
		Span:  s.span(startLine, startCol),
	}
}

func (s *scanner) scanIdentOrKeyword() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() && isAlphaNumeric(s.peek()) {
		s.advance()
	}

	text := s.source[startPos:s.pos]
	tokType := TokIdent
	if kw, ok := keywords[text]; ok {
		tokType = kw
	}
	return Token{
		Type:  tokType,
		Value: text,
		Span:  s.span(startLine, startCol),
	}
}

func (s *scanner) lexError(line, col int, msg string) error {
	return diagnostics.Errorf(diagnostics.ELex,
		&ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		"%s", msg)
}

// single returns a one-character token after consuming it.
func (s *scanner) single(typ TokenType) Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	s.advance()
	return Token{Type: typ, Value: s.source[startPos:s.pos], Span: s.span(startLine, startCol)}
}

// pair consumes one character, and a second '=' if present.
func (s *scanner) pair(one, withEq TokenType) Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	s.advance()
	typ := one
	if s.peek() == '=' {
		s.advance()
		typ = withEq
	}
	return Token{Type: typ, Value: s.source[startPos:s.pos], Span: s.span(startLine, startCol)}
}

func (s *scanner) nextToken() (Token, error) {
	s.skipWhitespaceAndComments()

	if s.atEnd() {
		return Token{
			Type:  TokEOF,
			Value: "",
			Span:  s.span(s.line, s.col),
		}, nil
	}

	ch := s.peek()
	startLine, startCol := s.line, s.col

	switch ch {
	case '(':
		return s.single(TokLParen), nil
	case ')':
		return s.single(TokRParen), nil
	case '{':
		return s.single(TokLBrace), nil
	case '}':
		return s.single(TokRBrace), nil
	case '[':
		return s.single(TokLBracket), nil
	case ']':
		return s.single(TokRBracket), nil
	case ';':
		return s.single(TokSemicolon), nil
	case ',':
		return s.single(TokComma), nil
	case '.':
		return s.single(TokDot), nil
	case '+':
		return s.single(TokPlus), nil
	case '-':
		return s.single(TokMinus), nil
	case '*':
		return s.single(TokStar), nil
	case '/':
		return s.single(TokSlash), nil
	case '%':
		return s.single(TokPercent), nil
	case '=':
		return s.pair(TokEquals, TokEqEq), nil
	case '>':
		return s.pair(TokGt, TokGtEq), nil
	case '<':
		return s.pair(TokLt, TokLtEq), nil
	case '!':
		if s.peekAt(1) == '=' {
			return s.pair(TokBangEq, TokBangEq), nil
		}
		s.advance()
		return Token{}, s.lexError(startLine, startCol, "unexpected character '!'")
	case '"':
		return s.scanString()
	}

	if isDigit(ch) {
		return s.scanNumber(), nil
	}
	if isAlpha(ch) {
		return s.scanIdentOrKeyword(), nil
	}

	s.advance()
	return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("unexpected character '%c'", ch))
}

// Tokenize breaks source code into a slice of tokens terminated by TokEOF.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}

// String returns a human-readable name for a token type, used in parse errors.
func (t TokenType) String() string {
	switch t {
	case TokLParen:
		return "'('"
	case TokRParen:
		return "')'"
	case TokLBrace:
		return "'{'"
	case TokRBrace:
		return "'}'"
	case TokLBracket:
		return "'['"
	case TokRBracket:
		return "']'"
	case TokSemicolon:
		return "';'"
	case TokComma:
		return "','"
	case TokDot:
		return "'.'"
	case TokEquals:
		return "'='"
	case TokIdent:
		return "identifier"
	case TokNumber:
		return "number"
	case TokString:
		return "string"
	case TokEOF:
		return "end of file"
	}
	for text, kw := range keywords {
		if kw == t {
			return "'" + text + "'"
		}
	}
	return fmt.Sprintf("token(%d)", int(t))
}
