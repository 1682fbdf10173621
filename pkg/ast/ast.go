// Package ast defines the Gemini language AST node types.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// BinaryOp represents a binary operator.
type BinaryOp string

const (
	OpAdd  BinaryOp = "+"
	OpSub  BinaryOp = "-"
	OpMul  BinaryOp = "*"
	OpDiv  BinaryOp = "/"
	OpMod  BinaryOp = "%"
	OpGt   BinaryOp = ">"
	OpLt   BinaryOp = "<"
	OpGtEq BinaryOp = ">="
	OpLtEq BinaryOp = "<="
	OpEqEq BinaryOp = "=="
	OpNeq  BinaryOp = "!="
)

// UnaryOp represents a unary operator.
type UnaryOp string

const (
	OpNeg UnaryOp = "-"
	OpPos UnaryOp = "+"
)

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Literals ---

// LiteralKind distinguishes the token class a literal was built from.
type LiteralKind int

const (
	LitNumber LiteralKind = iota
	LitString
	LitBool
)

// Literal keeps the raw lexeme; the evaluator converts it to a value.
// For strings Raw includes the surrounding quotes.
type Literal struct {
	Span    Span
	LitKind LiteralKind
	Raw     string
}

func (n *Literal) Kind() string   { return "Literal" }
func (n *Literal) NodeSpan() Span { return n.Span }
func (n *Literal) exprNode()      {}

// --- Names and access ---

type Variable struct {
	Span Span
	Name string
}

func (n *Variable) Kind() string   { return "Variable" }
func (n *Variable) NodeSpan() Span { return n.Span }
func (n *Variable) exprNode()      {}

// GetExpr is a property read: Object.Name.
type GetExpr struct {
	Span   Span
	Object Expr
	Name   string
}

func (n *GetExpr) Kind() string   { return "GetExpr" }
func (n *GetExpr) NodeSpan() Span { return n.Span }
func (n *GetExpr) exprNode()      {}

// IndexExpr is Target[Index].
type IndexExpr struct {
	Span   Span
	Target Expr
	Index  Expr
}

func (n *IndexExpr) Kind() string   { return "IndexExpr" }
func (n *IndexExpr) NodeSpan() Span { return n.Span }
func (n *IndexExpr) exprNode()      {}

// CallExpr calls a named function (Callee is a *Variable) or a module
// member (Callee is a *GetExpr).
type CallExpr struct {
	Span   Span
	Callee Expr
	Args   []Expr
}

func (n *CallExpr) Kind() string   { return "CallExpr" }
func (n *CallExpr) NodeSpan() Span { return n.Span }
func (n *CallExpr) exprNode()      {}

// --- Operators ---

// BinaryExpr carries the span of its operator token.
type BinaryExpr struct {
	Span  Span
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) Kind() string   { return "BinaryExpr" }
func (n *BinaryExpr) NodeSpan() Span { return n.Span }
func (n *BinaryExpr) exprNode()      {}

type UnaryExpr struct {
	Span    Span
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) Kind() string   { return "UnaryExpr" }
func (n *UnaryExpr) NodeSpan() Span { return n.Span }
func (n *UnaryExpr) exprNode()      {}

// --- Assignment ---

// AssignExpr is Name = Value. Span is the '=' token.
type AssignExpr struct {
	Span  Span
	Name  string
	Value Expr
}

func (n *AssignExpr) Kind() string   { return "AssignExpr" }
func (n *AssignExpr) NodeSpan() Span { return n.Span }
func (n *AssignExpr) exprNode()      {}

// IndexAssignExpr is Name[Index] = Value. Span is the '=' token.
type IndexAssignExpr struct {
	Span  Span
	Name  string
	Index Expr
	Value Expr
}

func (n *IndexAssignExpr) Kind() string   { return "IndexAssignExpr" }
func (n *IndexAssignExpr) NodeSpan() Span { return n.Span }
func (n *IndexAssignExpr) exprNode()      {}

// --- Statements ---

type ExprStmt struct {
	Span Span
	Expr Expr
}

func (n *ExprStmt) Kind() string   { return "ExprStmt" }
func (n *ExprStmt) NodeSpan() Span { return n.Span }
func (n *ExprStmt) stmtNode()      {}

// VarDecl declares Name in the innermost scope. Init may be nil.
type VarDecl struct {
	Span Span
	Name string
	Init Expr
}

func (n *VarDecl) Kind() string   { return "VarDecl" }
func (n *VarDecl) NodeSpan() Span { return n.Span }
func (n *VarDecl) stmtNode()      {}

type PrintStmt struct {
	Span  Span
	Value Expr
}

func (n *PrintStmt) Kind() string   { return "PrintStmt" }
func (n *PrintStmt) NodeSpan() Span { return n.Span }
func (n *PrintStmt) stmtNode()      {}

type IfStmt struct {
	Span Span
	Cond Expr
	Then Stmt
	Else Stmt
}

func (n *IfStmt) Kind() string   { return "IfStmt" }
func (n *IfStmt) NodeSpan() Span { return n.Span }
func (n *IfStmt) stmtNode()      {}

type WhileStmt struct {
	Span Span
	Cond Expr
	Body Stmt
}

func (n *WhileStmt) Kind() string   { return "WhileStmt" }
func (n *WhileStmt) NodeSpan() Span { return n.Span }
func (n *WhileStmt) stmtNode()      {}

// ForStmt: Init is nil, a *VarDecl or an *ExprStmt. Cond and Incr may be nil.
type ForStmt struct {
	Span Span
	Init Stmt
	Cond Expr
	Incr Expr
	Body Stmt
}

func (n *ForStmt) Kind() string   { return "ForStmt" }
func (n *ForStmt) NodeSpan() Span { return n.Span }
func (n *ForStmt) stmtNode()      {}

type Block struct {
	Span  Span
	Stmts []Stmt
}

func (n *Block) Kind() string   { return "Block" }
func (n *Block) NodeSpan() Span { return n.Span }
func (n *Block) stmtNode()      {}

type FunctionDecl struct {
	Span   Span
	Name   string
	Params []string
	Body   *Block
}

func (n *FunctionDecl) Kind() string   { return "FunctionDecl" }
func (n *FunctionDecl) NodeSpan() Span { return n.Span }
func (n *FunctionDecl) stmtNode()      {}

// ReturnStmt; Value may be nil.
type ReturnStmt struct {
	Span  Span
	Value Expr
}

func (n *ReturnStmt) Kind() string   { return "ReturnStmt" }
func (n *ReturnStmt) NodeSpan() Span { return n.Span }
func (n *ReturnStmt) stmtNode()      {}

// ImportStmt binds module Name under Alias (Alias == Name when no "as").
type ImportStmt struct {
	Span  Span
	Name  string
	Alias string
}

func (n *ImportStmt) Kind() string   { return "ImportStmt" }
func (n *ImportStmt) NodeSpan() Span { return n.Span }
func (n *ImportStmt) stmtNode()      {}

// CanonicalName is the cache identity of the imported module.
func (n *ImportStmt) CanonicalName() string {
	return n.Name + SourceExt
}

// --- Program ---

// SourceExt is the fixed extension of Gemini source files.
const SourceExt = ".gemini"

// Program is a compilation unit: the root block together with the source
// text its tokens were sliced from. Both live as long as the Program.
type Program struct {
	File   string
	Source string
	Body   *Block
}

func (n *Program) Kind() string   { return "Program" }
func (n *Program) NodeSpan() Span { return n.Body.Span }
