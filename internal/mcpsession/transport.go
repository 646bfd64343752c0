package mcpsession

import (
	"context"
	"encoding/json"
	"fmt"
)

// Transport is the abstract bidirectional channel a Session multiplexes
// over. A Go transport naturally owns both directions of one connection
// (a pipe pair, an HTTP round trip), so this interface unifies read and
// write rather than splitting them; demultiplexing responses to waiting
// callers is entirely the Session's job, not the transport's.
type Transport interface {
	// Read blocks until the next wire message arrives, or returns an error
	// when the connection is broken. A Session treats any Read error as
	// terminal and shuts itself down.
	Read(ctx context.Context) (json.RawMessage, error)

	// Write sends one wire message (a request or a notification). The
	// Session is the sole caller and calls Write from its single
	// background task, so implementations need not serialize concurrent
	// writers themselves.
	Write(ctx context.Context, data []byte) error

	// Close releases the transport's resources. Safe to call once the
	// Session has stopped using it.
	Close() error
}

// TransportFactory builds a Transport for one ServerConfig. NewSession
// takes a factory rather than a Transport directly so callers can defer
// process spawn or dial until the session actually starts.
type TransportFactory func(ctx context.Context, cfg ServerConfig) (Transport, error)

// NewTransport is the default TransportFactory, dispatching on
// cfg.Transport.
func NewTransport(ctx context.Context, cfg ServerConfig) (Transport, error) {
	switch cfg.Transport {
	case TransportStdio:
		return newStdioTransport(ctx, cfg)
	case TransportHTTP:
		return newHTTPTransport(cfg)
	default:
		return nil, fmt.Errorf("mcpsession: unknown transport %q", cfg.Transport)
	}
}
