// Package diagnostics defines Gemini diagnostic types for lex, parse, validation and runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thomasrohde/gemini/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex                 = "E_LEX"
	ESyntax              = "E_SYNTAX"
	EUndefinedVariable   = "E_UNDEFINED_VARIABLE"
	EUndefinedFunction   = "E_UNDEFINED_FUNCTION"
	EType                = "E_TYPE"
	ETypeMismatch        = "E_TYPE_MISMATCH"
	EDivisionByZero      = "E_DIVISION_BY_ZERO"
	EModuloByZero        = "E_MODULO_BY_ZERO"
	EArityMismatch       = "E_ARITY_MISMATCH"
	ETooManyArguments    = "E_TOO_MANY_ARGUMENTS"
	EIndexOutOfRange     = "E_INDEX_OUT_OF_RANGE"
	EProperty            = "E_PROPERTY"
	EStackOverflow       = "E_STACK_OVERFLOW"
	EModuleResolution    = "E_MODULE_RESOLUTION"
	EDuplicateDefinition = "E_DUPLICATE_DEFINITION"
	EReturnOutside       = "E_RETURN_OUTSIDE_FUNCTION"
	ECanceled            = "E_CANCELED"
	EIO                  = "E_IO"
	EManifest            = "E_MANIFEST"
)

// Diagnostic represents a parse, validation, or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// Line returns the 1-based source line of the diagnostic, or 0 when unknown.
func (d Diagnostic) Line() int {
	if d.Span == nil {
		return 0
	}
	return d.Span.StartLine
}

// Error is the error type returned by the lexer, parser and evaluator.
// The first Error produced by any stage aborts the run.
type Error struct {
	Code    string
	Message string
	Span    *ast.Span
}

func (e *Error) Error() string {
	return e.Message
}

// Line returns the best-known source line, or 0.
func (e *Error) Line() int {
	if e.Span == nil {
		return 0
	}
	return e.Span.StartLine
}

// Diagnostic converts the error into a Diagnostic.
func (e *Error) Diagnostic() Diagnostic {
	return MakeDiag(e.Code, e.Message, e.Span, "")
}

// Errorf builds an *Error with a formatted message.
func Errorf(code string, span *ast.Span, format string, args ...any) *Error {
	var sp *ast.Span
	if span != nil {
		copied := *span
		sp = &copied
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Span: sp}
}

// FormatLine renders a diagnostic the way the interpreter reports fatal errors:
// "[line N] Error: message".
func FormatLine(d Diagnostic) string {
	return fmt.Sprintf("[line %d] Error: %s", d.Line(), d.Message)
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}
