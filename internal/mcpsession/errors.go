package mcpsession

import "fmt"

// ErrorKind enumerates the session's error contract.
type ErrorKind string

const (
	// ErrClosed means the call was invoked after shutdown.
	ErrClosed ErrorKind = "closed"
	// ErrSendFailed means the outgoing queue or the underlying transport
	// write failed, or the transport's read side broke while the request
	// was still pending.
	ErrSendFailed ErrorKind = "send_failed"
	// ErrRPCError means the peer returned a JSON-RPC error object.
	ErrRPCError ErrorKind = "rpc_error"
	// ErrDeserializeFailed means the result could not be decoded into the
	// expected type.
	ErrDeserializeFailed ErrorKind = "deserialize_failed"
	// ErrMissingResult means a response carried neither result nor error.
	ErrMissingResult ErrorKind = "missing_result"
)

// Error is a structured session failure.
type Error struct {
	Kind    ErrorKind
	Code    int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrRPCError:
		return fmt.Sprintf("mcp session: rpc error %d: %s", e.Code, e.Message)
	case ErrDeserializeFailed:
		return fmt.Sprintf("mcp session: deserialize failed: %v", e.Cause)
	case ErrSendFailed:
		return fmt.Sprintf("mcp session: send failed: %v", e.Cause)
	default:
		if e.Message != "" {
			return fmt.Sprintf("mcp session: %s: %s", e.Kind, e.Message)
		}
		return fmt.Sprintf("mcp session: %s", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return true
	}
	return t.Kind == e.Kind
}
