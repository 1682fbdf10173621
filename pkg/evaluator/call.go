package evaluator

import (
	"strconv"

	"github.com/thomasrohde/gemini/pkg/ast"
	"github.com/thomasrohde/gemini/pkg/diagnostics"
)

// resolveCallee finds the function a call names. A bare name is looked up
// in the global function table, then in the definition environment; m.f
// is looked up in module m's own table.
func (ev *evaluator) resolveCallee(e *ast.CallExpr) (*Function, error) {
	span := e.Span
	switch callee := e.Callee.(type) {
	case *ast.Variable:
		if fn, ok := ev.arena.get(ev.global).Function(callee.Name); ok {
			return fn, nil
		}
		if fn, ok := ev.arena.get(ev.def).Function(callee.Name); ok {
			return fn, nil
		}
		return nil, diagnostics.Errorf(diagnostics.EUndefinedFunction, &span, "undefined function '%s'", callee.Name)

	case *ast.GetExpr:
		obj, err := ev.evalExpr(callee.Object)
		if err != nil {
			return nil, err
		}
		mod, ok := obj.(ModuleValue)
		if !ok {
			return nil, diagnostics.Errorf(diagnostics.EType, &span,
				"cannot call '%s' on %s: only modules have callable members", callee.Name, TypeName(obj))
		}
		if fn, ok := ev.arena.get(mod.M.Env).Function(callee.Name); ok {
			return fn, nil
		}
		return nil, diagnostics.Errorf(diagnostics.EUndefinedFunction, &span,
			"undefined function '%s' in module '%s'", callee.Name, mod.M.Name)
	}
	return nil, diagnostics.Errorf(diagnostics.ESyntax, &span, "can only call functions and module members")
}

func (ev *evaluator) evalCall(e *ast.CallExpr) (Value, error) {
	fn, err := ev.resolveCallee(e)
	if err != nil {
		return nil, err
	}

	span := e.Span
	var buf [MaxArgs]Value
	args := buf[:0]
	for i, argExpr := range e.Args {
		if i == MaxArgs {
			return nil, diagnostics.Errorf(diagnostics.ETooManyArguments, &span,
				"too many arguments in call to '%s' (max %d)", fn.Name, MaxArgs)
		}
		val, err := ev.evalExpr(argExpr)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}
	if len(args) != len(fn.Params) {
		return nil, diagnostics.Errorf(diagnostics.EArityMismatch, &span,
			"function '%s' expects %d arguments, got %d", fn.Name, len(fn.Params), len(args))
	}

	return ev.invoke(fn, args, span)
}

// invoke runs fn with already evaluated arguments. The callee gets a fresh
// environment; the caller's current and definition environments are
// restored afterwards whether or not the body failed.
func (ev *evaluator) invoke(fn *Function, args []Value, span ast.Span) (Value, error) {
	depth := len(ev.frames) + 1
	if depth > ev.limits.MaxCallDepth {
		return nil, diagnostics.Errorf(diagnostics.EStackOverflow, &span,
			"stack overflow (max call depth %d)", ev.limits.MaxCallDepth)
	}

	frame := &callFrame{savedEnv: ev.current, savedDef: ev.def, savedUnit: ev.unit}
	ev.frames = append(ev.frames, frame)
	ev.stats.enter(depth)

	env := NewEnvironment(nil)
	for i, param := range fn.Params {
		env.Define(param, args[i])
	}
	ev.current = env
	ev.def = fn.Closure
	ev.unit = fn.Unit

	ev.emit(TraceFnCallStart, &span, map[string]string{"fn": fn.Name, "depth": strconv.Itoa(depth)})
	err := ev.execStmts(fn.Body.Stmts)

	ev.frames = ev.frames[:len(ev.frames)-1]
	ev.current = frame.savedEnv
	ev.def = frame.savedDef
	ev.unit = frame.savedUnit
	ev.emit(TraceFnCallEnd, &span, map[string]string{"fn": fn.Name})

	if err != nil {
		return nil, err
	}
	if !frame.returned {
		return Int{}, nil
	}
	return frame.ret, nil
}
