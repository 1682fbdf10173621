package evaluator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/thomasrohde/gemini/pkg/ast"
	"github.com/thomasrohde/gemini/pkg/diagnostics"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart       TraceEventType = "run_start"
	TraceRunEnd         TraceEventType = "run_end"
	TraceFnCallStart    TraceEventType = "fn_call_start"
	TraceFnCallEnd      TraceEventType = "fn_call_end"
	TraceImportStart    TraceEventType = "import_start"
	TraceImportEnd      TraceEventType = "import_end"
	TraceModuleCacheHit TraceEventType = "module_cache_hit"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string            `json:"ts"`
	RunID     string            `json:"runId"`
	Event     TraceEventType    `json:"event"`
	Span      *ast.Span         `json:"span,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// ModuleSource produces the compilation unit for a canonical module name
// such as "util.gemini". Errors that are not *diagnostics.Error are reported
// as module resolution failures.
type ModuleSource interface {
	Load(ctx context.Context, canonical string) (*ast.Program, error)
}

// ExecOptions configures program execution.
type ExecOptions struct {
	Stdout       io.Writer
	Modules      ModuleSource
	MaxCallDepth int
	Trace        func(event TraceEvent)
	RunID        string
	Logger       *slog.Logger
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	Stats Stats
}

type callFrame struct {
	savedEnv  *Environment
	savedDef  EnvID
	savedUnit *ast.Program
	ret       Value
	returned  bool
}

type evaluator struct {
	ctx    context.Context
	opts   ExecOptions
	out    io.Writer
	limits Limits
	stats  Stats

	arena   arena
	global  EnvID
	modules map[string]*Module
	loading []string

	current   *Environment
	def       EnvID
	unit      *ast.Program
	frames    []*callFrame
	frameBase int // frames below this index belong to an importer
	scratch   [2]*Environment
}

// Session keeps the global environment and module cache alive across
// several programs, as the REPL needs. A Session is not safe for
// concurrent use.
type Session struct {
	ev *evaluator
}

// NewSession creates a session with a fresh global environment.
func NewSession(opts ExecOptions) *Session {
	ev := &evaluator{
		opts:    opts,
		out:     opts.Stdout,
		limits:  Limits{MaxCallDepth: opts.MaxCallDepth},
		modules: make(map[string]*Module),
	}
	if ev.out == nil {
		ev.out = os.Stdout
	}
	if ev.limits.MaxCallDepth <= 0 {
		ev.limits.MaxCallDepth = DefaultMaxCallDepth
	}
	ev.global = ev.arena.alloc()
	return &Session{ev: ev}
}

// Exec runs program against the session's global environment. The first
// error aborts the program; the session stays usable afterwards.
func (s *Session) Exec(ctx context.Context, program *ast.Program) (*ExecResult, error) {
	ev := s.ev
	ev.ctx = ctx
	ev.current = ev.arena.get(ev.global)
	ev.def = ev.global
	ev.unit = program
	ev.frames = ev.frames[:0]
	ev.frameBase = 0
	ev.loading = ev.loading[:0]

	span := program.NodeSpan()
	ev.emit(TraceRunStart, &span, nil)
	err := ev.execStmts(program.Body.Stmts)
	ev.emit(TraceRunEnd, &span, nil)

	return &ExecResult{Stats: ev.stats}, err
}

// Execute runs a Gemini program in a fresh session.
func Execute(ctx context.Context, program *ast.Program, opts ExecOptions) (*ExecResult, error) {
	return NewSession(opts).Exec(ctx, program)
}

func (ev *evaluator) emit(event TraceEventType, span *ast.Span, data map[string]string) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Span:      span,
			Data:      data,
		})
	}
}

func (ev *evaluator) debug(msg string, args ...any) {
	if ev.opts.Logger != nil {
		ev.opts.Logger.DebugContext(ev.ctx, msg, args...)
	}
}

// --- Scope resolution ---

// fallbacks lists the scopes consulted after the current chain: the
// definition environment, then the global environment, skipping any that
// is already the root of the current chain.
func (ev *evaluator) fallbacks() []*Environment {
	root := ev.current.root()
	def := ev.arena.get(ev.def)
	global := ev.arena.get(ev.global)
	out := ev.scratch[:0]
	if def != root {
		out = append(out, def)
	}
	if global != root && global != def {
		out = append(out, global)
	}
	return out
}

// resolveVar returns the nearest environment holding name, or nil.
func (ev *evaluator) resolveVar(name string) *Environment {
	for e := ev.current; e != nil; e = e.parent {
		if _, ok := e.vars[name]; ok {
			return e
		}
	}
	for _, e := range ev.fallbacks() {
		if _, ok := e.vars[name]; ok {
			return e
		}
	}
	return nil
}

func (ev *evaluator) returning() bool {
	n := len(ev.frames)
	return n > ev.frameBase && ev.frames[n-1].returned
}

// --- Statements ---

func (ev *evaluator) execStmts(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		if err := ev.ctx.Err(); err != nil {
			span := stmt.NodeSpan()
			return diagnostics.Errorf(diagnostics.ECanceled, &span, "execution canceled: %v", err)
		}
		if err := ev.execStmt(stmt); err != nil {
			return err
		}
		if ev.returning() {
			return nil
		}
	}
	return nil
}

func (ev *evaluator) execBlock(block *ast.Block) error {
	saved := ev.current
	ev.current = saved.Child()
	err := ev.execStmts(block.Stmts)
	ev.current = saved
	return err
}

func (ev *evaluator) execStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		_, err := ev.evalExpr(s.Expr)
		return err

	case *ast.VarDecl:
		var val Value = Int{}
		if s.Init != nil {
			v, err := ev.evalExpr(s.Init)
			if err != nil {
				return err
			}
			val = v
		}
		ev.current.Define(s.Name, val)
		return nil

	case *ast.PrintStmt:
		val, err := ev.evalExpr(s.Value)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(ev.out, Format(val)); err != nil {
			span := s.Span
			return diagnostics.Errorf(diagnostics.EIO, &span, "print failed: %v", err)
		}
		return nil

	case *ast.IfStmt:
		cond, err := ev.evalExpr(s.Cond)
		if err != nil {
			return err
		}
		if Truthiness(cond) {
			return ev.execStmt(s.Then)
		}
		if s.Else != nil {
			return ev.execStmt(s.Else)
		}
		return nil

	case *ast.WhileStmt:
		for !ev.returning() {
			cond, err := ev.evalExpr(s.Cond)
			if err != nil {
				return err
			}
			if !Truthiness(cond) {
				break
			}
			if err := ev.execStmt(s.Body); err != nil {
				return err
			}
		}
		return nil

	case *ast.ForStmt:
		return ev.execFor(s)

	case *ast.Block:
		return ev.execBlock(s)

	case *ast.FunctionDecl:
		fn := &Function{
			Name:    s.Name,
			Params:  s.Params,
			Body:    s.Body,
			Unit:    ev.unit,
			Closure: ev.def,
		}
		if !ev.arena.get(ev.def).DeclareFunction(fn) {
			span := s.Span
			return diagnostics.Errorf(diagnostics.EDuplicateDefinition, &span,
				"function '%s' is already declared in this scope", s.Name)
		}
		return nil

	case *ast.ReturnStmt:
		span := s.Span
		if len(ev.frames) == ev.frameBase {
			return diagnostics.Errorf(diagnostics.EReturnOutside, &span, "can't return from top-level code")
		}
		var val Value = Int{}
		if s.Value != nil {
			v, err := ev.evalExpr(s.Value)
			if err != nil {
				return err
			}
			val = v
		}
		frame := ev.frames[len(ev.frames)-1]
		frame.ret = val
		frame.returned = true
		return nil

	case *ast.ImportStmt:
		return ev.execImport(s)
	}

	span := stmt.NodeSpan()
	return diagnostics.Errorf(diagnostics.ESyntax, &span, "unsupported statement: %s", stmt.Kind())
}

// execFor runs a for loop. The initializer gets its own scope so a loop
// variable does not outlive the loop.
func (ev *evaluator) execFor(s *ast.ForStmt) error {
	saved := ev.current
	ev.current = saved.Child()
	defer func() { ev.current = saved }()

	if s.Init != nil {
		if err := ev.execStmt(s.Init); err != nil {
			return err
		}
	}
	for !ev.returning() {
		if s.Cond != nil {
			cond, err := ev.evalExpr(s.Cond)
			if err != nil {
				return err
			}
			if !Truthiness(cond) {
				break
			}
		}
		if err := ev.execStmt(s.Body); err != nil {
			return err
		}
		if ev.returning() {
			break
		}
		if s.Incr != nil {
			if _, err := ev.evalExpr(s.Incr); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- Expressions ---

func (ev *evaluator) evalExpr(expr ast.Expr) (Value, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return literalValue(e)

	case *ast.Variable:
		if env := ev.resolveVar(e.Name); env != nil {
			return env.vars[e.Name], nil
		}
		span := e.Span
		return nil, diagnostics.Errorf(diagnostics.EUndefinedVariable, &span, "undefined variable '%s'", e.Name)

	case *ast.AssignExpr:
		val, err := ev.evalExpr(e.Value)
		if err != nil {
			return nil, err
		}
		env := ev.resolveVar(e.Name)
		if env == nil {
			span := e.Span
			return nil, diagnostics.Errorf(diagnostics.EUndefinedVariable, &span, "undefined variable '%s'", e.Name)
		}
		env.vars[e.Name] = val
		return val, nil

	case *ast.IndexAssignExpr:
		return ev.evalIndexAssign(e)

	case *ast.GetExpr:
		return ev.evalGet(e)

	case *ast.IndexExpr:
		return ev.evalIndex(e)

	case *ast.CallExpr:
		return ev.evalCall(e)

	case *ast.BinaryExpr:
		return ev.evalBinary(e)

	case *ast.UnaryExpr:
		return ev.evalUnary(e)
	}

	span := expr.NodeSpan()
	return nil, diagnostics.Errorf(diagnostics.EType, &span, "unsupported expression: %s", expr.Kind())
}

func literalValue(lit *ast.Literal) (Value, error) {
	switch lit.LitKind {
	case ast.LitString:
		return String{V: lit.Raw[1 : len(lit.Raw)-1]}, nil
	case ast.LitBool:
		return Bool{V: lit.Raw == "true"}, nil
	}
	span := lit.Span
	if strings.Contains(lit.Raw, ".") {
		f, err := strconv.ParseFloat(lit.Raw, 64)
		if err != nil {
			return nil, diagnostics.Errorf(diagnostics.EType, &span, "invalid number literal '%s'", lit.Raw)
		}
		return Float{V: f}, nil
	}
	n, err := strconv.ParseInt(lit.Raw, 10, 64)
	if err != nil {
		return nil, diagnostics.Errorf(diagnostics.EType, &span, "invalid number literal '%s'", lit.Raw)
	}
	return Int{V: n}, nil
}

func (ev *evaluator) evalUnary(e *ast.UnaryExpr) (Value, error) {
	val, err := ev.evalExpr(e.Operand)
	if err != nil {
		return nil, err
	}
	if e.Op == ast.OpPos {
		return val, nil
	}
	switch v := val.(type) {
	case Int:
		return Int{V: -v.V}, nil
	case Float:
		return Float{V: -v.V}, nil
	}
	span := e.Span
	return nil, diagnostics.Errorf(diagnostics.EType, &span, "cannot negate %s", TypeName(val))
}

func (ev *evaluator) evalGet(e *ast.GetExpr) (Value, error) {
	obj, err := ev.evalExpr(e.Object)
	if err != nil {
		return nil, err
	}
	span := e.Span
	switch o := obj.(type) {
	case String:
		if e.Name == "length" {
			return Int{V: int64(utf8.RuneCountInString(o.V))}, nil
		}
		return nil, diagnostics.Errorf(diagnostics.EProperty, &span, "string has no property '%s'", e.Name)
	case ModuleValue:
		if v, ok := ev.arena.get(o.M.Env).Get(e.Name); ok {
			return v, nil
		}
		return nil, diagnostics.Errorf(diagnostics.EUndefinedVariable, &span,
			"undefined variable '%s' in module '%s'", e.Name, o.M.Name)
	}
	return nil, diagnostics.Errorf(diagnostics.EProperty, &span, "cannot read property '%s' of %s", e.Name, TypeName(obj))
}

func (ev *evaluator) evalIndex(e *ast.IndexExpr) (Value, error) {
	target, err := ev.evalExpr(e.Target)
	if err != nil {
		return nil, err
	}
	index, err := ev.evalExpr(e.Index)
	if err != nil {
		return nil, err
	}
	span := e.Span
	s, ok := target.(String)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ETypeMismatch, &span, "cannot index %s", TypeName(target))
	}
	i, ok := index.(Int)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ETypeMismatch, &span, "string index must be int, got %s", TypeName(index))
	}
	runes := []rune(s.V)
	if i.V < 0 || i.V >= int64(len(runes)) {
		return nil, diagnostics.Errorf(diagnostics.EIndexOutOfRange, &span,
			"string index %d out of range [0, %d)", i.V, len(runes))
	}
	return String{V: string(runes[i.V])}, nil
}

func (ev *evaluator) evalIndexAssign(e *ast.IndexAssignExpr) (Value, error) {
	index, err := ev.evalExpr(e.Index)
	if err != nil {
		return nil, err
	}
	val, err := ev.evalExpr(e.Value)
	if err != nil {
		return nil, err
	}
	span := e.Span
	env := ev.resolveVar(e.Name)
	if env == nil {
		return nil, diagnostics.Errorf(diagnostics.EUndefinedVariable, &span, "undefined variable '%s'", e.Name)
	}
	s, ok := env.vars[e.Name].(String)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ETypeMismatch, &span,
			"cannot index-assign %s", TypeName(env.vars[e.Name]))
	}
	i, ok := index.(Int)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ETypeMismatch, &span, "string index must be int, got %s", TypeName(index))
	}
	c, ok := val.(String)
	if !ok || utf8.RuneCountInString(c.V) != 1 {
		return nil, diagnostics.Errorf(diagnostics.ETypeMismatch, &span, "can only assign a one-character string into a string")
	}
	runes := []rune(s.V)
	if i.V < 0 || i.V >= int64(len(runes)) {
		return nil, diagnostics.Errorf(diagnostics.EIndexOutOfRange, &span,
			"string index %d out of range [0, %d)", i.V, len(runes))
	}
	runes[i.V], _ = utf8.DecodeRuneInString(c.V)
	env.vars[e.Name] = String{V: string(runes)}
	return val, nil
}
