package ast_test

import (
	"testing"

	"github.com/thomasrohde/gemini/pkg/ast"
)

func TestNodeKinds(t *testing.T) {
	nodes := []ast.Node{
		&ast.Literal{LitKind: ast.LitNumber, Raw: "42"},
		&ast.Variable{Name: "x"},
		&ast.GetExpr{Name: "length"},
		&ast.IndexExpr{},
		&ast.CallExpr{},
		&ast.BinaryExpr{Op: ast.OpAdd},
		&ast.UnaryExpr{Op: ast.OpNeg},
		&ast.AssignExpr{Name: "x"},
		&ast.IndexAssignExpr{Name: "s"},
		&ast.VarDecl{Name: "x"},
		&ast.PrintStmt{},
		&ast.IfStmt{},
		&ast.WhileStmt{},
		&ast.ForStmt{},
		&ast.Block{},
		&ast.FunctionDecl{Name: "f"},
		&ast.ReturnStmt{},
		&ast.ImportStmt{Name: "m", Alias: "m"},
		&ast.ExprStmt{},
	}

	expected := []string{
		"Literal", "Variable", "GetExpr", "IndexExpr", "CallExpr", "BinaryExpr", "UnaryExpr",
		"AssignExpr", "IndexAssignExpr", "VarDecl", "PrintStmt", "IfStmt", "WhileStmt",
		"ForStmt", "Block", "FunctionDecl", "ReturnStmt", "ImportStmt", "ExprStmt",
	}

	for i, node := range nodes {
		if got := node.Kind(); got != expected[i] {
			t.Errorf("node %d: got Kind() = %q, want %q", i, got, expected[i])
		}
	}
}

func TestCanonicalName(t *testing.T) {
	imp := &ast.ImportStmt{Name: "math", Alias: "m"}
	if got := imp.CanonicalName(); got != "math.gemini" {
		t.Errorf("got %q, want %q", got, "math.gemini")
	}
}
