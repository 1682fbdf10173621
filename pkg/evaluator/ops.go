package evaluator

import (
	"math"

	"github.com/thomasrohde/gemini/pkg/ast"
	"github.com/thomasrohde/gemini/pkg/diagnostics"
)

func (ev *evaluator) evalBinary(e *ast.BinaryExpr) (Value, error) {
	left, err := ev.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}

	span := e.Span
	switch e.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		return arith(e.Op, left, right, &span)
	case ast.OpGt, ast.OpGtEq, ast.OpLt, ast.OpLtEq:
		return compare(e.Op, left, right, &span)
	case ast.OpEqEq:
		return Bool{V: Equal(left, right)}, nil
	case ast.OpNeq:
		return Bool{V: !Equal(left, right)}, nil
	}
	return nil, diagnostics.Errorf(diagnostics.EType, &span, "unknown operator '%s'", e.Op)
}

func isModule(v Value) bool {
	_, ok := v.(ModuleValue)
	return ok
}

func isString(v Value) bool {
	_, ok := v.(String)
	return ok
}

// arith applies an arithmetic operator. A '+' with a string operand
// concatenates; otherwise numbers combine, with a one-character string
// standing in for its character code.
func arith(op ast.BinaryOp, a, b Value, span *ast.Span) (Value, error) {
	if isModule(a) || isModule(b) {
		return nil, mismatch(op, a, b, span)
	}
	if op == ast.OpAdd && (isString(a) || isString(b)) {
		return String{V: Format(a) + Format(b)}, nil
	}
	if v, ok, err := numeric(op, a, b, span); ok || err != nil {
		return v, err
	}

	ca, okA := coerceChar(a)
	cb, okB := coerceChar(b)
	if okA || okB {
		if v, ok, err := numeric(op, ca, cb, span); ok || err != nil {
			return v, err
		}
	}
	return nil, mismatch(op, a, b, span)
}

// coerceChar turns a one-character string into its code. Other values are
// returned unchanged with ok false.
func coerceChar(v Value) (Value, bool) {
	s, ok := v.(String)
	if !ok {
		return v, false
	}
	code, ok := charCode(s.V)
	if !ok {
		return v, false
	}
	return Int{V: code}, true
}

// numeric combines two numbers. ok is false when the pair is not numeric.
func numeric(op ast.BinaryOp, a, b Value, span *ast.Span) (Value, bool, error) {
	switch x := a.(type) {
	case Int:
		switch y := b.(type) {
		case Int:
			v, err := intArith(op, x.V, y.V, span)
			return v, true, err
		case Float:
			v, err := floatArith(op, float64(x.V), y.V, span)
			return v, true, err
		}
	case Float:
		switch y := b.(type) {
		case Int:
			v, err := floatArith(op, x.V, float64(y.V), span)
			return v, true, err
		case Float:
			v, err := floatArith(op, x.V, y.V, span)
			return v, true, err
		}
	}
	return nil, false, nil
}

func intArith(op ast.BinaryOp, a, b int64, span *ast.Span) (Value, error) {
	switch op {
	case ast.OpAdd:
		return Int{V: a + b}, nil
	case ast.OpSub:
		return Int{V: a - b}, nil
	case ast.OpMul:
		return Int{V: a * b}, nil
	case ast.OpDiv:
		if b == 0 {
			return nil, diagnostics.Errorf(diagnostics.EDivisionByZero, span, "division by zero")
		}
		if a == math.MinInt64 && b == -1 {
			return Int{V: a}, nil
		}
		return Int{V: a / b}, nil
	case ast.OpMod:
		if b == 0 {
			return nil, diagnostics.Errorf(diagnostics.EModuloByZero, span, "modulo by zero")
		}
		if b == -1 {
			return Int{V: 0}, nil
		}
		return Int{V: a % b}, nil
	}
	return nil, diagnostics.Errorf(diagnostics.EType, span, "unknown operator '%s'", op)
}

func floatArith(op ast.BinaryOp, a, b float64, span *ast.Span) (Value, error) {
	switch op {
	case ast.OpAdd:
		return Float{V: a + b}, nil
	case ast.OpSub:
		return Float{V: a - b}, nil
	case ast.OpMul:
		return Float{V: a * b}, nil
	case ast.OpDiv:
		if b == 0 {
			return nil, diagnostics.Errorf(diagnostics.EDivisionByZero, span, "division by zero")
		}
		return Float{V: a / b}, nil
	case ast.OpMod:
		if b == 0 {
			return nil, diagnostics.Errorf(diagnostics.EModuloByZero, span, "modulo by zero")
		}
		return Float{V: math.Mod(a, b)}, nil
	}
	return nil, diagnostics.Errorf(diagnostics.EType, span, "unknown operator '%s'", op)
}

// compare applies a relational operator to a numeric pair.
func compare(op ast.BinaryOp, a, b Value, span *ast.Span) (Value, error) {
	var x, y float64
	switch av := a.(type) {
	case Int:
		if bv, ok := b.(Int); ok {
			return Bool{V: cmpInts(op, av.V, bv.V)}, nil
		}
		x = float64(av.V)
	case Float:
		x = av.V
	default:
		return nil, mismatch(op, a, b, span)
	}
	switch bv := b.(type) {
	case Int:
		y = float64(bv.V)
	case Float:
		y = bv.V
	default:
		return nil, mismatch(op, a, b, span)
	}
	return Bool{V: cmpFloats(op, x, y)}, nil
}

func cmpInts(op ast.BinaryOp, a, b int64) bool {
	switch op {
	case ast.OpGt:
		return a > b
	case ast.OpGtEq:
		return a >= b
	case ast.OpLt:
		return a < b
	}
	return a <= b
}

func cmpFloats(op ast.BinaryOp, a, b float64) bool {
	switch op {
	case ast.OpGt:
		return a > b
	case ast.OpGtEq:
		return a >= b
	case ast.OpLt:
		return a < b
	}
	return a <= b
}

func mismatch(op ast.BinaryOp, a, b Value, span *ast.Span) error {
	return diagnostics.Errorf(diagnostics.ETypeMismatch, span,
		"unsupported operand types for '%s': %s and %s", op, TypeName(a), TypeName(b))
}
