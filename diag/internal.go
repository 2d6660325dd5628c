package diag

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// InternalError reports a broken invariant inside the compiler. It is never
// caused by the program being compiled and always aborts the pipeline.
type InternalError struct {
	// Transform names the phase or pass that detected the failure.
	Transform string
	Message   string
	// Node is a dump of the offending node or instruction, if any.
	Node string
	// Type is the offending type, if any.
	Type string
	// File and Line locate the check that failed.
	File string
	Line int
	// Err is the underlying cause, if any.
	Err error
}

// NewInternalError creates an InternalError recording the caller's location.
func NewInternalError(transform, format string, args ...any) *InternalError {
	e := &InternalError{
		Transform: transform,
		Message:   fmt.Sprintf(format, args...),
	}
	if _, file, line, ok := runtime.Caller(1); ok {
		e.File = filepath.Base(file)
		e.Line = line
	}
	return e
}

// WrapInternal wraps err as an InternalError raised by transform.
func WrapInternal(transform string, err error) *InternalError {
	e := &InternalError{
		Transform: transform,
		Message:   err.Error(),
		Err:       err,
	}
	if _, file, line, ok := runtime.Caller(1); ok {
		e.File = filepath.Base(file)
		e.Line = line
	}
	return e
}

// WithNode attaches a node dump.
func (e *InternalError) WithNode(node string) *InternalError {
	e.Node = node
	return e
}

// WithType attaches the offending type.
func (e *InternalError) WithType(t fmt.Stringer) *InternalError {
	if t != nil {
		e.Type = t.String()
	}
	return e
}

func (e *InternalError) Error() string {
	var sb strings.Builder
	sb.WriteString("internal compiler error")
	if e.Transform != "" {
		fmt.Fprintf(&sb, " in %s", e.Transform)
	}
	if e.File != "" {
		fmt.Fprintf(&sb, " (%s:%d)", e.File, e.Line)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Type != "" {
		fmt.Fprintf(&sb, "\n  type: %s", e.Type)
	}
	if e.Node != "" {
		fmt.Fprintf(&sb, "\n  node: %s", e.Node)
	}
	return sb.String()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Diagnostic converts the error to a diagnostic with Internal severity.
func (e *InternalError) Diagnostic() Diagnostic {
	return Diagnostic{Severity: Internal, Message: e.Error()}
}
