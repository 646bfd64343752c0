package models

import (
	"errors"
	"testing"
)

func TestToolErrorIsMatchesByKind(t *testing.T) {
	err := NewToolError(ToolErrorNotFound, "unknown tool")

	if !errors.Is(err, &ToolError{Kind: ToolErrorNotFound}) {
		t.Error("expected errors.Is to match on Kind")
	}
	if errors.Is(err, &ToolError{Kind: ToolErrorExecution}) {
		t.Error("expected errors.Is not to match a different Kind")
	}
}

func TestToolErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewToolErrorFromCause(ToolErrorExecution, "tool failed", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the wrapped cause")
	}
}
