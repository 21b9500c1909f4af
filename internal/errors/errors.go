// internal/errors/errors.go
package errors

import (
	"fmt"
	"strings"
)

// Kind classifies a structured compiler or runtime failure.
type Kind string

const (
	SyntaxError    Kind = "SyntaxError"
	TypeError      Kind = "TypeError"
	ReferenceError Kind = "ReferenceError"
	CompileError   Kind = "CompileError"
	RuntimeError   Kind = "RuntimeError"
	InternalError  Kind = "InternalError"
)

// Location points at a position in source code.
type Location struct {
	File   string
	Line   int
	Column int
}

// Error is a classified, message-bearing failure produced during compilation
// or execution. It is distinct from control conditions like end-of-input.
type Error struct {
	Kind     Kind
	Message  string
	Location Location
	Source   string // the source line the error occurred on, if known
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s: %s", e.Kind, e.Message))

	if e.Location.Line > 0 {
		sb.WriteString("\n")
		if e.Location.File != "" {
			sb.WriteString(fmt.Sprintf("  at %s:%d:%d\n", e.Location.File, e.Location.Line, e.Location.Column))
		} else {
			sb.WriteString(fmt.Sprintf("  at line %d:%d\n", e.Location.Line, e.Location.Column))
		}
		if e.Source != "" {
			prefix := fmt.Sprintf("  %d | ", e.Location.Line)
			sb.WriteString(prefix + e.Source + "\n")
			sb.WriteString(strings.Repeat(" ", len(prefix)))
			if e.Location.Column > 1 {
				sb.WriteString(strings.Repeat(" ", e.Location.Column-1))
			}
			sb.WriteString("^")
		}
	}

	return sb.String()
}

// Header renders just the "<Kind>: <message>" form, without location context.
func (e *Error) Header() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New creates a structured error without location information.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewSyntaxError creates a syntax error at a source position.
func NewSyntaxError(message string, file string, line, column int) *Error {
	return &Error{
		Kind:    SyntaxError,
		Message: message,
		Location: Location{
			File:   file,
			Line:   line,
			Column: column,
		},
	}
}

// WithSource attaches the offending source line for rendering.
func (e *Error) WithSource(source string) *Error {
	e.Source = source
	return e
}
