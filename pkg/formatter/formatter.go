// Package formatter implements the Gemini source code formatter.
package formatter

import (
	"strings"

	"github.com/thomasrohde/gemini/pkg/ast"
)

const indent = "  "

// Precedence table for binary operators (higher = tighter binding).
// Assignment sits below all of them at 0.
var precedence = map[ast.BinaryOp]int{
	ast.OpEqEq: 1, ast.OpNeq: 1,
	ast.OpGt: 2, ast.OpLt: 2, ast.OpGtEq: 2, ast.OpLtEq: 2,
	ast.OpAdd: 3, ast.OpSub: 3,
	ast.OpMul: 4, ast.OpDiv: 4, ast.OpMod: 4,
}

const (
	precAssign  = 0
	precUnary   = 5
	precPostfix = 6
)

func exprPrec(e ast.Expr) int {
	switch expr := e.(type) {
	case *ast.AssignExpr, *ast.IndexAssignExpr:
		return precAssign
	case *ast.BinaryExpr:
		return precedence[expr.Op]
	case *ast.UnaryExpr:
		return precUnary
	}
	return precPostfix
}

func needsParens(child ast.Expr, parentOp ast.BinaryOp, isRight bool) bool {
	childPrec := exprPrec(child)
	parentPrec := precedence[parentOp]
	if childPrec < parentPrec {
		return true
	}
	// Binary operators are left-associative: same precedence on the right keeps its parens.
	if _, ok := child.(*ast.BinaryExpr); ok && childPrec == parentPrec && isRight {
		return true
	}
	return false
}

// Format pretty-prints a Gemini AST back to source code. Top-level
// function declarations are separated from their neighbours by a blank line.
func Format(program *ast.Program) string {
	var lines []string
	stmts := program.Body.Stmts
	for i, s := range stmts {
		if i > 0 && (isFunc(s) || isFunc(stmts[i-1])) {
			lines = append(lines, "")
		}
		lines = append(lines, formatStmt(s, 0))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func isFunc(s ast.Stmt) bool {
	_, ok := s.(*ast.FunctionDecl)
	return ok
}

// HasComments reports whether source contains a // comment outside a
// string literal. The formatter drops comments, so callers refuse to
// rewrite such files.
func HasComments(source string) bool {
	inString := false
	for i := 0; i < len(source); i++ {
		switch {
		case source[i] == '"':
			inString = !inString
		case !inString && source[i] == '/' && i+1 < len(source) && source[i+1] == '/':
			return true
		}
	}
	return false
}

func formatStmt(s ast.Stmt, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch stmt := s.(type) {
	case *ast.VarDecl:
		if stmt.Init == nil {
			return prefix + "var " + stmt.Name + ";"
		}
		return prefix + "var " + stmt.Name + " = " + formatExpr(stmt.Init) + ";"
	case *ast.PrintStmt:
		return prefix + "print " + formatExpr(stmt.Value) + ";"
	case *ast.ExprStmt:
		return prefix + formatExpr(stmt.Expr) + ";"
	case *ast.ReturnStmt:
		if stmt.Value == nil {
			return prefix + "return;"
		}
		return prefix + "return " + formatExpr(stmt.Value) + ";"
	case *ast.ImportStmt:
		if stmt.Alias != "" && stmt.Alias != stmt.Name {
			return prefix + "import " + stmt.Name + " as " + stmt.Alias + ";"
		}
		return prefix + "import " + stmt.Name + ";"
	case *ast.FunctionDecl:
		params := strings.Join(stmt.Params, ", ")
		return prefix + "function " + stmt.Name + "(" + params + ") " + formatBlock(stmt.Body, depth)
	case *ast.Block:
		return prefix + formatBlock(stmt, depth)
	case *ast.IfStmt:
		return prefix + formatIf(stmt, depth)
	case *ast.WhileStmt:
		return prefix + "while (" + formatExpr(stmt.Cond) + ")" + formatBody(stmt.Body, depth)
	case *ast.ForStmt:
		init := ";"
		if stmt.Init != nil {
			init = formatStmt(stmt.Init, 0)
		}
		clauses := init
		if stmt.Cond != nil {
			clauses += " " + formatExpr(stmt.Cond)
		}
		clauses += ";"
		if stmt.Incr != nil {
			clauses += " " + formatExpr(stmt.Incr)
		}
		return prefix + "for (" + clauses + ")" + formatBody(stmt.Body, depth)
	}
	return ""
}

func formatIf(stmt *ast.IfStmt, depth int) string {
	out := "if (" + formatExpr(stmt.Cond) + ")" + formatBody(stmt.Then, depth)
	if stmt.Else == nil {
		return out
	}
	if _, ok := stmt.Then.(*ast.Block); ok {
		out += " "
	} else {
		out += "\n" + strings.Repeat(indent, depth)
	}
	if elif, ok := stmt.Else.(*ast.IfStmt); ok {
		return out + "else " + formatIf(elif, depth)
	}
	return out + "else" + formatBody(stmt.Else, depth)
}

// formatBody renders the body of if, else, while and for: a block stays on
// the header line, a single statement moves to its own indented line.
func formatBody(body ast.Stmt, depth int) string {
	if block, ok := body.(*ast.Block); ok {
		return " " + formatBlock(block, depth)
	}
	return "\n" + formatStmt(body, depth+1)
}

func formatBlock(block *ast.Block, depth int) string {
	if len(block.Stmts) == 0 {
		return "{}"
	}
	lines := make([]string, len(block.Stmts))
	for i, s := range block.Stmts {
		lines[i] = formatStmt(s, depth+1)
	}
	return "{\n" + strings.Join(lines, "\n") + "\n" + strings.Repeat(indent, depth) + "}"
}

func formatExpr(e ast.Expr) string {
	switch expr := e.(type) {
	case *ast.Literal:
		return expr.Raw
	case *ast.Variable:
		return expr.Name
	case *ast.GetExpr:
		return formatOperand(expr.Object) + "." + expr.Name
	case *ast.IndexExpr:
		return formatOperand(expr.Target) + "[" + formatExpr(expr.Index) + "]"
	case *ast.CallExpr:
		args := make([]string, len(expr.Args))
		for i, a := range expr.Args {
			args[i] = formatExpr(a)
		}
		return formatOperand(expr.Callee) + "(" + strings.Join(args, ", ") + ")"
	case *ast.AssignExpr:
		return expr.Name + " = " + formatExpr(expr.Value)
	case *ast.IndexAssignExpr:
		return expr.Name + "[" + formatExpr(expr.Index) + "] = " + formatExpr(expr.Value)
	case *ast.BinaryExpr:
		leftStr := formatExpr(expr.Left)
		rightStr := formatExpr(expr.Right)
		if needsParens(expr.Left, expr.Op, false) {
			leftStr = "(" + leftStr + ")"
		}
		if needsParens(expr.Right, expr.Op, true) {
			rightStr = "(" + rightStr + ")"
		}
		return leftStr + " " + string(expr.Op) + " " + rightStr
	case *ast.UnaryExpr:
		operandStr := formatExpr(expr.Operand)
		if exprPrec(expr.Operand) <= precUnary {
			return string(expr.Op) + "(" + operandStr + ")"
		}
		return string(expr.Op) + operandStr
	}
	return ""
}

// formatOperand wraps anything looser than a postfix chain in parentheses.
func formatOperand(e ast.Expr) string {
	if exprPrec(e) < precPostfix {
		return "(" + formatExpr(e) + ")"
	}
	return formatExpr(e)
}
