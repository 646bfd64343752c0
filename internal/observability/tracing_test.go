package observability

import (
	"context"
	"errors"
	"testing"
)

func TestStartProviderCallReturnsUsableSpan(t *testing.T) {
	tracer := NewTracer("test")
	ctx, span := tracer.StartProviderCall(context.Background(), "anthropic", "claude-3-opus")
	defer span.End()
	if ctx == nil {
		t.Fatal("expected a non-nil context")
	}
	if span == nil {
		t.Fatal("expected a non-nil span")
	}
}

func TestEndWithErrorRecordsError(t *testing.T) {
	tracer := NewTracer("test")
	_, span := tracer.StartToolDispatch(context.Background(), "files", "read")
	err := errors.New("dispatch failed")
	EndWithError(span, &err)
}
