// Package parser implements the Gemini recursive-descent parser.
package parser

import (
	"github.com/thomasrohde/gemini/pkg/ast"
	"github.com/thomasrohde/gemini/pkg/diagnostics"
	"github.com/thomasrohde/gemini/pkg/lexer"
)

// parser walks a token slice. Parsing stops at the first error: every parse
// method returns nil once err is set and callers unwind without resyncing.
type parser struct {
	tokens []lexer.Token
	pos    int
	err    *diagnostics.Error
}

// Parse tokenizes source and parses it into a compilation unit.
func Parse(source, filename string) (*ast.Program, error) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		return nil, err
	}
	return ParseTokens(tokens, source, filename)
}

// ParseTokens parses an already tokenized stream. tokens must end with TokEOF;
// source is kept on the returned Program because token values slice into it.
func ParseTokens(tokens []lexer.Token, source, filename string) (*ast.Program, error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.TokEOF {
		tokens = append(tokens, lexer.Token{Type: lexer.TokEOF, Span: ast.Span{File: filename, StartLine: 1, StartCol: 1}})
	}
	p := &parser{tokens: tokens}
	body := p.parseProgram()
	if p.err != nil {
		return nil, p.err
	}
	return &ast.Program{File: filename, Source: source, Body: body}, nil
}

// Incomplete reports whether source fails to parse only because it ends
// too early, such as an unclosed block or a missing ';'. The REPL keeps
// reading lines while this holds.
func Incomplete(source string) bool {
	tokens, err := lexer.Tokenize(source, "")
	if err != nil {
		return false
	}
	_, err = ParseTokens(tokens, source, "")
	if err == nil {
		return false
	}
	perr, ok := err.(*diagnostics.Error)
	if !ok || perr.Span == nil {
		return false
	}
	eof := tokens[len(tokens)-1].Span
	return perr.Span.StartLine == eof.StartLine && perr.Span.StartCol == eof.StartCol
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) check(typ lexer.TokenType) bool {
	return p.peek() == typ
}

func (p *parser) match(types ...lexer.TokenType) bool {
	for _, typ := range types {
		if p.check(typ) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *parser) expect(typ lexer.TokenType, msg string) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.fail(msg, tok.Span)
		return tok, false
	}
	return p.advance(), true
}

// fail records the first error only.
func (p *parser) fail(msg string, span ast.Span) {
	if p.err == nil {
		p.err = diagnostics.Errorf(diagnostics.ESyntax, &span, "%s", msg)
	}
}

// --- Program ---

func (p *parser) parseProgram() *ast.Block {
	root := &ast.Block{Span: p.current().Span}
	for !p.check(lexer.TokEOF) {
		stmt := p.parseDeclaration()
		if stmt == nil {
			return nil
		}
		root.Stmts = append(root.Stmts, stmt)
	}
	return root
}

// --- Declarations ---

func (p *parser) parseDeclaration() ast.Stmt {
	switch p.peek() {
	case lexer.TokVar:
		if s := p.parseVarDecl(); s != nil {
			return s
		}
		return nil
	case lexer.TokFunction:
		if s := p.parseFunctionDecl(); s != nil {
			return s
		}
		return nil
	}
	return p.parseStatement()
}

func (p *parser) parseVarDecl() *ast.VarDecl {
	start := p.advance() // consume 'var'
	name, ok := p.expect(lexer.TokIdent, "expect variable name")
	if !ok {
		return nil
	}
	var init ast.Expr
	if p.match(lexer.TokEquals) {
		init = p.parseExpression()
		if init == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokSemicolon, "expect ';' after variable declaration"); !ok {
		return nil
	}
	return &ast.VarDecl{Span: start.Span, Name: name.Value, Init: init}
}

func (p *parser) parseFunctionDecl() *ast.FunctionDecl {
	start := p.advance() // consume 'function'
	name, ok := p.expect(lexer.TokIdent, "expect function name")
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokLParen, "expect '(' after function name"); !ok {
		return nil
	}
	var params []string
	if !p.check(lexer.TokRParen) {
		for {
			param, ok := p.expect(lexer.TokIdent, "expect parameter name")
			if !ok {
				return nil
			}
			params = append(params, param.Value)
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	if _, ok := p.expect(lexer.TokRParen, "expect ')' after parameters"); !ok {
		return nil
	}
	open, ok := p.expect(lexer.TokLBrace, "expect '{' before function body")
	if !ok {
		return nil
	}
	body := p.parseBlockBody(open)
	if body == nil {
		return nil
	}
	return &ast.FunctionDecl{Span: start.Span, Name: name.Value, Params: params, Body: body}
}

// --- Statements ---

// parseStatement returns an untyped nil on failure; each branch checks its
// concrete result so a nil pointer never ends up inside the interface.
func (p *parser) parseStatement() ast.Stmt {
	var stmt ast.Stmt
	switch p.peek() {
	case lexer.TokPrint:
		if s := p.parsePrintStmt(); s != nil {
			stmt = s
		}
	case lexer.TokIf:
		if s := p.parseIfStmt(); s != nil {
			stmt = s
		}
	case lexer.TokWhile:
		if s := p.parseWhileStmt(); s != nil {
			stmt = s
		}
	case lexer.TokFor:
		if s := p.parseForStmt(); s != nil {
			stmt = s
		}
	case lexer.TokReturn:
		if s := p.parseReturnStmt(); s != nil {
			stmt = s
		}
	case lexer.TokImport:
		if s := p.parseImportStmt(); s != nil {
			stmt = s
		}
	case lexer.TokLBrace:
		if s := p.parseBlockBody(p.advance()); s != nil {
			stmt = s
		}
	default:
		if s := p.parseExprStmt("expect ';' after expression"); s != nil {
			stmt = s
		}
	}
	return stmt
}

// parseBlockBody parses statements after an already consumed '{'.
func (p *parser) parseBlockBody(open lexer.Token) *ast.Block {
	block := &ast.Block{Span: open.Span}
	for !p.check(lexer.TokRBrace) && !p.check(lexer.TokEOF) {
		stmt := p.parseDeclaration()
		if stmt == nil {
			return nil
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	if _, ok := p.expect(lexer.TokRBrace, "expect '}' after block"); !ok {
		return nil
	}
	return block
}

func (p *parser) parsePrintStmt() *ast.PrintStmt {
	start := p.advance() // consume 'print'
	value := p.parseExpression()
	if value == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokSemicolon, "expect ';' after print value"); !ok {
		return nil
	}
	return &ast.PrintStmt{Span: start.Span, Value: value}
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.advance() // consume 'return'
	var value ast.Expr
	if !p.check(lexer.TokSemicolon) {
		value = p.parseExpression()
		if value == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokSemicolon, "expect ';' after return value"); !ok {
		return nil
	}
	return &ast.ReturnStmt{Span: start.Span, Value: value}
}

func (p *parser) parseImportStmt() *ast.ImportStmt {
	start := p.advance() // consume 'import'
	name, ok := p.expect(lexer.TokIdent, "expect module name after 'import'")
	if !ok {
		return nil
	}
	alias := name
	if p.match(lexer.TokAs) {
		alias, ok = p.expect(lexer.TokIdent, "expect alias name after 'as'")
		if !ok {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokSemicolon, "expect ';' after import"); !ok {
		return nil
	}
	return &ast.ImportStmt{Span: start.Span, Name: name.Value, Alias: alias.Value}
}

func (p *parser) parseIfStmt() *ast.IfStmt {
	start := p.advance() // consume 'if'
	if _, ok := p.expect(lexer.TokLParen, "expect '(' after 'if'"); !ok {
		return nil
	}
	cond := p.parseExpression()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen, "expect ')' after if condition"); !ok {
		return nil
	}
	then := p.parseStatement()
	if then == nil {
		return nil
	}
	stmt := &ast.IfStmt{Span: start.Span, Cond: cond, Then: then}
	if p.match(lexer.TokElse) {
		stmt.Else = p.parseStatement()
		if stmt.Else == nil {
			return nil
		}
	}
	return stmt
}

func (p *parser) parseWhileStmt() *ast.WhileStmt {
	start := p.advance() // consume 'while'
	if _, ok := p.expect(lexer.TokLParen, "expect '(' after 'while'"); !ok {
		return nil
	}
	cond := p.parseExpression()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen, "expect ')' after condition"); !ok {
		return nil
	}
	body := p.parseStatement()
	if body == nil {
		return nil
	}
	return &ast.WhileStmt{Span: start.Span, Cond: cond, Body: body}
}

func (p *parser) parseForStmt() *ast.ForStmt {
	start := p.advance() // consume 'for'
	if _, ok := p.expect(lexer.TokLParen, "expect '(' after 'for'"); !ok {
		return nil
	}

	stmt := &ast.ForStmt{Span: start.Span}
	switch p.peek() {
	case lexer.TokSemicolon:
		p.advance()
	case lexer.TokVar:
		decl := p.parseVarDecl()
		if decl == nil {
			return nil
		}
		stmt.Init = decl
	default:
		init := p.parseExprStmt("expect ';' after loop start")
		if init == nil {
			return nil
		}
		stmt.Init = init
	}

	if !p.check(lexer.TokSemicolon) {
		stmt.Cond = p.parseExpression()
		if stmt.Cond == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokSemicolon, "expect ';' after loop condition"); !ok {
		return nil
	}

	if !p.check(lexer.TokRParen) {
		stmt.Incr = p.parseExpression()
		if stmt.Incr == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokRParen, "expect ')' after for clauses"); !ok {
		return nil
	}

	stmt.Body = p.parseStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *parser) parseExprStmt(terminator string) *ast.ExprStmt {
	start := p.current()
	expr := p.parseExpression()
	if expr == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokSemicolon, terminator); !ok {
		return nil
	}
	return &ast.ExprStmt{Span: start.Span, Expr: expr}
}
