package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorReason categorizes a provider failure into the three buckets the
// agent loop (C5) treats differently: context-length failures surface
// immediately without retry, transient failures are retried with backoff,
// and permanent failures surface immediately.
type ErrorReason string

const (
	// ReasonContextLengthExceeded means the conversation is too long for
	// the model; the loop does not retry and does not mutate the
	// conversation; the caller decides on truncation.
	ReasonContextLengthExceeded ErrorReason = "context_length_exceeded"
	// ReasonTransient means the request may succeed on retry.
	ReasonTransient ErrorReason = "transient"
	// ReasonPermanent means retrying would not help.
	ReasonPermanent ErrorReason = "permanent"
)

// Error is a structured failure from a Provider, classified into one of
// the three ErrorReason buckets so the reply loop can decide whether to
// retry, back off, or surface immediately.
type Error struct {
	Reason    ErrorReason
	Provider  string
	Model     string
	Status    int
	Code      string
	Message   string
	RequestID string
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Reason))
	if e.Provider != "" {
		parts = append(parts, e.Provider)
	}
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Reason (when
// Reason is set), so errors.Is(err, &Error{Reason: ReasonTransient}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Reason == "" {
		return true
	}
	return t.Reason == e.Reason
}

// contextLengthCodes are the provider-reported error codes that the
// translation layer maps to ReasonContextLengthExceeded.
var contextLengthCodes = map[string]bool{
	"context_length_exceeded": true,
	"string_above_max_length": true,
}

// ClassifyCode maps a provider-specific error code to a reason, following
// the same detection policy. Anthropic's invalid_request_error with a
// "maximum context length" message is handled by ClassifyMessage since
// Anthropic does not use a dedicated code for it.
func ClassifyCode(code string) ErrorReason {
	if contextLengthCodes[strings.ToLower(code)] {
		return ReasonContextLengthExceeded
	}
	switch strings.ToLower(code) {
	case "rate_limit_error", "rate_limit_exceeded", "overloaded_error",
		"server_error", "internal_error", "api_error":
		return ReasonTransient
	case "authentication_error", "invalid_api_key", "permission_error",
		"invalid_request_error", "not_found_error":
		return ReasonPermanent
	default:
		return ""
	}
}

// ClassifyMessage inspects a free-text error message for phrasing that
// indicates a too-long conversation, the one place the wire format gives
// no dedicated machine-readable code.
func ClassifyMessage(message string) ErrorReason {
	lower := strings.ToLower(message)
	if strings.Contains(lower, "maximum context length") ||
		strings.Contains(lower, "context_length_exceeded") ||
		strings.Contains(lower, "too long") {
		return ReasonContextLengthExceeded
	}
	return ""
}

// ClassifyStatus maps an HTTP status code to a reason.
func ClassifyStatus(status int) ErrorReason {
	switch {
	case status == http.StatusTooManyRequests, status >= 500:
		return ReasonTransient
	case status == http.StatusUnauthorized, status == http.StatusForbidden,
		status == http.StatusBadRequest, status == http.StatusNotFound:
		return ReasonPermanent
	default:
		return ""
	}
}

// IsRetryable reports whether err (or a wrapped *Error) warrants a retry.
func IsRetryable(err error) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Reason == ReasonTransient
	}
	return false
}

// IsContextLengthExceeded reports whether err is a context-length failure.
func IsContextLengthExceeded(err error) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Reason == ReasonContextLengthExceeded
	}
	return false
}
