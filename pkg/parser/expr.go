package parser

import (
	"github.com/thomasrohde/gemini/pkg/ast"
	"github.com/thomasrohde/gemini/pkg/lexer"
)

// --- Expressions (precedence climbing, lowest first) ---

func (p *parser) parseExpression() ast.Expr {
	return p.parseAssignment()
}

// parseAssignment is right-associative: a = b = c parses as a = (b = c).
func (p *parser) parseAssignment() ast.Expr {
	expr := p.parseEquality()
	if expr == nil {
		return nil
	}
	if !p.check(lexer.TokEquals) {
		return expr
	}
	eq := p.advance()
	value := p.parseAssignment()
	if value == nil {
		return nil
	}

	switch target := expr.(type) {
	case *ast.Variable:
		return &ast.AssignExpr{Span: eq.Span, Name: target.Name, Value: value}
	case *ast.IndexExpr:
		if v, ok := target.Target.(*ast.Variable); ok {
			return &ast.IndexAssignExpr{Span: eq.Span, Name: v.Name, Index: target.Index, Value: value}
		}
	}
	p.fail("invalid assignment target", eq.Span)
	return nil
}

var equalityOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.TokEqEq:   ast.OpEqEq,
	lexer.TokBangEq: ast.OpNeq,
}

var comparisonOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.TokGt:   ast.OpGt,
	lexer.TokGtEq: ast.OpGtEq,
	lexer.TokLt:   ast.OpLt,
	lexer.TokLtEq: ast.OpLtEq,
}

var termOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.TokPlus:  ast.OpAdd,
	lexer.TokMinus: ast.OpSub,
}

var factorOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.TokStar:    ast.OpMul,
	lexer.TokSlash:   ast.OpDiv,
	lexer.TokPercent: ast.OpMod,
}

func (p *parser) parseEquality() ast.Expr {
	return p.parseBinary(equalityOps, p.parseComparison)
}

func (p *parser) parseComparison() ast.Expr {
	return p.parseBinary(comparisonOps, p.parseTerm)
}

func (p *parser) parseTerm() ast.Expr {
	return p.parseBinary(termOps, p.parseFactor)
}

func (p *parser) parseFactor() ast.Expr {
	return p.parseBinary(factorOps, p.parseUnary)
}

// parseBinary parses a left-associative chain of operators from ops, with
// operands produced by next.
func (p *parser) parseBinary(ops map[lexer.TokenType]ast.BinaryOp, next func() ast.Expr) ast.Expr {
	left := next()
	if left == nil {
		return nil
	}
	for {
		op, ok := ops[p.peek()]
		if !ok {
			return left
		}
		opTok := p.advance()
		right := next()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{Span: opTok.Span, Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() ast.Expr {
	tok := p.current()
	var op ast.UnaryOp
	switch tok.Type {
	case lexer.TokMinus:
		op = ast.OpNeg
	case lexer.TokPlus:
		op = ast.OpPos
	default:
		return p.parseCall()
	}
	p.advance()
	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	return &ast.UnaryExpr{Span: tok.Span, Op: op, Operand: operand}
}

// parseCall handles the postfix chain: calls, property reads and indexing.
func (p *parser) parseCall() ast.Expr {
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}
	for {
		switch p.peek() {
		case lexer.TokLParen:
			open := p.advance()
			switch expr.(type) {
			case *ast.Variable, *ast.GetExpr:
			default:
				p.fail("can only call functions and module members", open.Span)
				return nil
			}
			args, ok := p.parseArgs()
			if !ok {
				return nil
			}
			expr = &ast.CallExpr{Span: expr.NodeSpan(), Callee: expr, Args: args}
		case lexer.TokDot:
			p.advance()
			name, ok := p.expect(lexer.TokIdent, "expect property name after '.'")
			if !ok {
				return nil
			}
			expr = &ast.GetExpr{Span: name.Span, Object: expr, Name: name.Value}
		case lexer.TokLBracket:
			open := p.advance()
			index := p.parseExpression()
			if index == nil {
				return nil
			}
			if _, ok := p.expect(lexer.TokRBracket, "expect ']' after index"); !ok {
				return nil
			}
			expr = &ast.IndexExpr{Span: open.Span, Target: expr, Index: index}
		default:
			return expr
		}
	}
}

// parseArgs parses a comma separated argument list after '('.
func (p *parser) parseArgs() ([]ast.Expr, bool) {
	var args []ast.Expr
	if !p.check(lexer.TokRParen) {
		for {
			arg := p.parseExpression()
			if arg == nil {
				return nil, false
			}
			args = append(args, arg)
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	if _, ok := p.expect(lexer.TokRParen, "expect ')' after arguments"); !ok {
		return nil, false
	}
	return args, true
}

func (p *parser) parsePrimary() ast.Expr {
	tok := p.current()
	switch tok.Type {
	case lexer.TokNumber:
		p.advance()
		return &ast.Literal{Span: tok.Span, LitKind: ast.LitNumber, Raw: tok.Value}
	case lexer.TokString:
		p.advance()
		return &ast.Literal{Span: tok.Span, LitKind: ast.LitString, Raw: tok.Value}
	case lexer.TokTrue, lexer.TokFalse:
		p.advance()
		return &ast.Literal{Span: tok.Span, LitKind: ast.LitBool, Raw: tok.Value}
	case lexer.TokIdent:
		p.advance()
		return &ast.Variable{Span: tok.Span, Name: tok.Value}
	case lexer.TokLParen:
		p.advance()
		inner := p.parseExpression()
		if inner == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen, "expect ')' after expression"); !ok {
			return nil
		}
		return inner
	}
	p.fail("expect expression", tok.Span)
	return nil
}
