package mcpsession

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// fakeTransport is an in-memory Transport driven entirely by the test: it
// never touches a real process or socket, and Close unblocks any pending
// Read/Write so a Session can shut down deterministically.
type fakeTransport struct {
	writes chan []byte
	reads  chan json.RawMessage
	closed chan struct{}
	once   sync.Once

	writeErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		writes: make(chan []byte, 16),
		reads:  make(chan json.RawMessage, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) Write(ctx context.Context, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	select {
	case f.writes <- data:
		return nil
	case <-f.closed:
		return errors.New("fake transport closed")
	}
}

func (f *fakeTransport) Read(ctx context.Context) (json.RawMessage, error) {
	select {
	case raw := <-f.reads:
		return raw, nil
	case <-f.closed:
		return nil, errors.New("fake transport closed")
	}
}

func (f *fakeTransport) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) push(raw json.RawMessage) {
	select {
	case f.reads <- raw:
	case <-f.closed:
	}
}

// respond starts a goroutine that answers every outgoing request with a
// canned result, keyed by method. Requests for methods not in the map are
// left unanswered, letting a test simulate a server that never replies.
func (f *fakeTransport) respond(results map[string]json.RawMessage) {
	go func() {
		for {
			select {
			case data := <-f.writes:
				var req struct {
					ID     *uint64 `json:"id"`
					Method string  `json:"method"`
				}
				if err := json.Unmarshal(data, &req); err != nil || req.ID == nil {
					continue // notification, nothing to answer
				}
				result, ok := results[req.Method]
				if !ok {
					continue
				}
				env := envelope{JSONRPC: "2.0", ID: req.ID, Result: result}
				raw, _ := json.Marshal(env)
				f.push(raw)
			case <-f.closed:
				return
			}
		}
	}()
}

func newTestSession(transport *fakeTransport) *Session {
	factory := func(ctx context.Context, cfg ServerConfig) (Transport, error) {
		return transport, nil
	}
	s, err := NewSession(context.Background(), ServerConfig{ID: "test", Transport: TransportStdio, Command: "/bin/true"}, factory)
	if err != nil {
		panic(err)
	}
	return s
}
