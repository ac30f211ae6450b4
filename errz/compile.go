package errz

import (
	"fmt"
	"strings"
)

// ErrorCode identifies a compile error category.
type ErrorCode string

const (
	E2001 ErrorCode = "E2001" // Undefined identifier
	E2003 ErrorCode = "E2003" // Invalid break statement
	E2004 ErrorCode = "E2004" // Invalid continue statement
	E2101 ErrorCode = "E2101" // Unsupported node kind
	E2102 ErrorCode = "E2102" // Invalid literal
	E2103 ErrorCode = "E2103" // Wrong child arity
	E2104 ErrorCode = "E2104" // Unsupported operator
	E2105 ErrorCode = "E2105" // Invalid assignment target
	E2106 ErrorCode = "E2106" // Positional argument after keyword argument
	E2107 ErrorCode = "E2107" // Unresolved jump
)

var codeDescriptions = map[ErrorCode]string{
	E2001: "undefined identifier",
	E2003: "invalid break statement",
	E2004: "invalid continue statement",
	E2101: "unsupported node",
	E2102: "invalid literal",
	E2103: "wrong child arity",
	E2104: "unsupported operator",
	E2105: "invalid assignment target",
	E2106: "positional argument after keyword argument",
	E2107: "unresolved jump",
}

// Description returns the short description of the code.
func (c ErrorCode) Description() string {
	return codeDescriptions[c]
}

// CompileError is a single tagged compile error.
type CompileError struct {
	Code     ErrorCode
	Message  string
	Filename string
	Line     int
	Column   int
}

// NewCompileError creates a compile error at the given position.
func NewCompileError(code ErrorCode, line, column int, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Column:  column,
	}
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "compile error [%s]: %s", e.Code, e.Message)
	if e.Filename != "" || e.Line > 0 {
		b.WriteString(" at ")
		if e.Filename != "" {
			b.WriteString(e.Filename)
			b.WriteString(":")
		}
		fmt.Fprintf(&b, "%d:%d", e.Line, e.Column)
	}
	return b.String()
}

// Location returns the error position as a SourceLocation.
func (e *CompileError) Location() SourceLocation {
	return SourceLocation{Filename: e.Filename, Line: e.Line, Column: e.Column}
}

// CompileErrors holds multiple compile errors.
type CompileErrors struct {
	Errors []*CompileError
}

// Error implements the error interface.
func (e *CompileErrors) Error() string {
	switch len(e.Errors) {
	case 0:
		return ""
	case 1:
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e.Errors[0].Error(), len(e.Errors)-1)
}

// FriendlyErrorMessage lists every error on its own line.
func (e *CompileErrors) FriendlyErrorMessage() string {
	var b strings.Builder
	for _, err := range e.Errors {
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

// Unwrap exposes each error to errors.Is and errors.As.
func (e *CompileErrors) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}

// Add adds a compile error to the collection.
func (e *CompileErrors) Add(err *CompileError) {
	e.Errors = append(e.Errors, err)
}

// HasErrors returns true if there are any errors.
func (e *CompileErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// ToError returns the errors as a single error, or nil if empty.
func (e *CompileErrors) ToError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
