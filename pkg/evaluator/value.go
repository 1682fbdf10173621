// Package evaluator implements the Gemini tree-walking evaluator.
package evaluator

import (
	"strconv"
	"unicode/utf8"
)

// Value is the interface for all Gemini runtime values.
// The sealed marker method restricts implementations to this package.
type Value interface {
	value() // sealed marker
}

// Int is a 64-bit signed integer.
type Int struct {
	V int64
}

func (Int) value() {}

// Float is a 64-bit floating point number.
type Float struct {
	V float64
}

func (Float) value() {}

// String owns its text. Length and indexing count characters, not bytes.
type String struct {
	V string
}

func (String) value() {}

// Bool is true or false.
type Bool struct {
	V bool
}

func (Bool) value() {}

// ModuleValue refers to a loaded module. Copies share the same Module.
type ModuleValue struct {
	M *Module
}

func (ModuleValue) value() {}

// NewInt creates an integer value.
func NewInt(n int64) Value { return Int{V: n} }

// NewFloat creates a float value.
func NewFloat(f float64) Value { return Float{V: f} }

// NewString creates a string value.
func NewString(s string) Value { return String{V: s} }

// NewBool creates a boolean value.
func NewBool(b bool) Value { return Bool{V: b} }

// Truthiness returns the boolean interpretation of a value.
func Truthiness(v Value) bool {
	switch val := v.(type) {
	case Bool:
		return val.V
	case Int:
		return val.V != 0
	case Float:
		return val.V != 0
	case String:
		return val.V != ""
	case ModuleValue:
		return true
	}
	return false
}

// Format renders a value the way print shows it.
func Format(v Value) string {
	switch val := v.(type) {
	case Int:
		return strconv.FormatInt(val.V, 10)
	case Float:
		return strconv.FormatFloat(val.V, 'g', 6, 64)
	case Bool:
		if val.V {
			return "true"
		}
		return "false"
	case String:
		return val.V
	case ModuleValue:
		return "<module " + val.M.Name + ">"
	}
	return ""
}

// TypeName returns the user-facing name of a value's type.
func TypeName(v Value) string {
	switch v.(type) {
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Bool:
		return "bool"
	case ModuleValue:
		return "module"
	}
	return "unknown"
}

// Equal compares two values of the same type. Values of different types are
// never equal; modules compare by identity.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Int:
		bv, ok := b.(Int)
		return ok && av.V == bv.V
	case Float:
		bv, ok := b.(Float)
		return ok && av.V == bv.V
	case String:
		bv, ok := b.(String)
		return ok && av.V == bv.V
	case Bool:
		bv, ok := b.(Bool)
		return ok && av.V == bv.V
	case ModuleValue:
		bv, ok := b.(ModuleValue)
		return ok && av.M == bv.M
	}
	return false
}

// charCode reports the code of a one-character string.
func charCode(s string) (int64, bool) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return int64(r), true
}
