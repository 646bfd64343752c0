package models

import (
	"fmt"
	"strings"
)

// ToolErrorKind enumerates the wire-visible tool error taxonomy from the
// spec: a tool call fails in exactly one of these ways, and conversation
// content carries the kind back to the provider so it can recover.
type ToolErrorKind string

const (
	// ToolErrorNotFound means the tool name was unknown or malformed.
	ToolErrorNotFound ToolErrorKind = "not_found"
	// ToolErrorInvalidParameters means arguments failed to parse or to
	// validate against the tool's input schema.
	ToolErrorInvalidParameters ToolErrorKind = "invalid_parameters"
	// ToolErrorExecution means the tool ran and failed.
	ToolErrorExecution ToolErrorKind = "execution_error"
	// ToolErrorSerialization means the result could not be encoded.
	ToolErrorSerialization ToolErrorKind = "serialization_error"
)

// ToolError is a structured failure attached to a ToolRequest or
// ToolResponse content part. It implements error so it composes with
// errors.Is/errors.As and fmt.Errorf("%w", ...).
type ToolError struct {
	Kind    ToolErrorKind
	Message string
	Cause   error
}

// NewToolError builds a ToolError of the given kind.
func NewToolError(kind ToolErrorKind, message string) *ToolError {
	return &ToolError{Kind: kind, Message: message}
}

// NewToolErrorFromCause builds a ToolError of the given kind, wrapping cause.
func NewToolErrorFromCause(kind ToolErrorKind, message string, cause error) *ToolError {
	return &ToolError{Kind: kind, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", e.Kind)
	if e.Message != "" {
		b.WriteByte(' ')
		b.WriteString(e.Message)
	} else if e.Cause != nil {
		b.WriteByte(' ')
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *ToolError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *ToolError of the same Kind, so
// errors.Is(err, &ToolError{Kind: ToolErrorNotFound}) works without
// requiring callers to compare messages.
func (e *ToolError) Is(target error) bool {
	t, ok := target.(*ToolError)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return true
	}
	return t.Kind == e.Kind
}
