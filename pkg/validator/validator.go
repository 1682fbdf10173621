// Package validator implements static checks of Gemini programs. It only
// reports errors the evaluator is certain to raise once the offending
// statement runs, so a program that passes may still fail at runtime.
package validator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thomasrohde/gemini/pkg/ast"
	"github.com/thomasrohde/gemini/pkg/diagnostics"
)

// maxArgs mirrors the evaluator's fixed argument buffer.
const maxArgs = 16

type validator struct {
	diags    []diagnostics.Diagnostic
	topLevel map[string]*ast.FunctionDecl
	fnDepth  int
}

// Validate performs semantic analysis on a Gemini program and returns diagnostics.
func Validate(program *ast.Program) []diagnostics.Diagnostic {
	v := &validator{topLevel: make(map[string]*ast.FunctionDecl)}

	// Calls anywhere in the unit may refer to top-level functions declared later.
	for _, stmt := range program.Body.Stmts {
		if fn, ok := stmt.(*ast.FunctionDecl); ok {
			if _, dup := v.topLevel[fn.Name]; !dup {
				v.topLevel[fn.Name] = fn
			}
		}
	}

	v.validateStatements(program.Body.Stmts)
	return v.diags
}

func (v *validator) addDiag(code, msg string, span ast.Span, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, &span, hint))
}

func (v *validator) validateStatements(stmts []ast.Stmt) {
	declared := make(map[string]bool)
	for _, stmt := range stmts {
		if fn, ok := stmt.(*ast.FunctionDecl); ok {
			if declared[fn.Name] {
				v.addDiag(diagnostics.EDuplicateDefinition,
					fmt.Sprintf("function '%s' is already declared in this scope", fn.Name), fn.Span, "")
			}
			declared[fn.Name] = true
		}
		v.validateStmt(stmt)
	}
}

func (v *validator) validateStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		v.validateExpr(s.Init)
	case *ast.PrintStmt:
		v.validateExpr(s.Value)
	case *ast.ExprStmt:
		v.validateExpr(s.Expr)
	case *ast.ReturnStmt:
		if v.fnDepth == 0 {
			v.addDiag(diagnostics.EReturnOutside, "can't return from top-level code", s.Span,
				"return is only allowed inside a function body")
		}
		v.validateExpr(s.Value)
	case *ast.Block:
		v.validateStatements(s.Stmts)
	case *ast.IfStmt:
		v.validateExpr(s.Cond)
		v.validateStmt(s.Then)
		if s.Else != nil {
			v.validateStmt(s.Else)
		}
	case *ast.WhileStmt:
		v.validateExpr(s.Cond)
		v.validateStmt(s.Body)
	case *ast.ForStmt:
		if s.Init != nil {
			v.validateStmt(s.Init)
		}
		v.validateExpr(s.Cond)
		v.validateExpr(s.Incr)
		v.validateStmt(s.Body)
	case *ast.FunctionDecl:
		v.fnDepth++
		v.validateStatements(s.Body.Stmts)
		v.fnDepth--
	}
}

func (v *validator) validateExpr(expr ast.Expr) {
	if expr == nil {
		return
	}

	switch e := expr.(type) {
	case *ast.Literal:
		v.validateLiteral(e)
	case *ast.Variable:
		// resolution is dynamic
	case *ast.GetExpr:
		v.validateExpr(e.Object)
	case *ast.IndexExpr:
		v.validateExpr(e.Target)
		v.validateExpr(e.Index)
	case *ast.BinaryExpr:
		v.validateExpr(e.Left)
		v.validateExpr(e.Right)
	case *ast.UnaryExpr:
		v.validateExpr(e.Operand)
	case *ast.AssignExpr:
		v.validateExpr(e.Value)
	case *ast.IndexAssignExpr:
		v.validateExpr(e.Index)
		v.validateExpr(e.Value)
	case *ast.CallExpr:
		v.validateCall(e)
	}
}

func (v *validator) validateCall(e *ast.CallExpr) {
	v.validateExpr(e.Callee)
	for _, arg := range e.Args {
		v.validateExpr(arg)
	}

	name := calleeName(e.Callee)
	if len(e.Args) > maxArgs {
		v.addDiag(diagnostics.ETooManyArguments,
			fmt.Sprintf("too many arguments in call to '%s' (max %d)", name, maxArgs), e.Span, "")
		return
	}

	callee, ok := e.Callee.(*ast.Variable)
	if !ok {
		return
	}
	fn, ok := v.topLevel[callee.Name]
	if !ok || len(fn.Params) == len(e.Args) {
		return
	}
	v.addDiag(diagnostics.EArityMismatch,
		fmt.Sprintf("function '%s' expects %d arguments, got %d", fn.Name, len(fn.Params), len(e.Args)), e.Span,
		fmt.Sprintf("declared as %s(%s) on line %d", fn.Name, strings.Join(fn.Params, ", "), fn.Span.StartLine))
}

func calleeName(callee ast.Expr) string {
	switch c := callee.(type) {
	case *ast.Variable:
		return c.Name
	case *ast.GetExpr:
		if obj, ok := c.Object.(*ast.Variable); ok {
			return obj.Name + "." + c.Name
		}
		return c.Name
	}
	return "<expr>"
}

func (v *validator) validateLiteral(lit *ast.Literal) {
	if lit.LitKind != ast.LitNumber {
		return
	}
	var err error
	if strings.Contains(lit.Raw, ".") {
		_, err = strconv.ParseFloat(lit.Raw, 64)
	} else {
		_, err = strconv.ParseInt(lit.Raw, 10, 64)
	}
	if err != nil {
		v.addDiag(diagnostics.EType, fmt.Sprintf("invalid number literal '%s'", lit.Raw), lit.Span, "")
	}
}
