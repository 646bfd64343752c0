package mcpsession

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestInitializeSendsHandshakeAndInitializedNotification(t *testing.T) {
	transport := newFakeTransport()
	transport.respond(map[string]json.RawMessage{
		"initialize": json.RawMessage(`{"protocolVersion":"2024-11-05","capabilities":{},"serverInfo":{"name":"test-server","version":"1.0"}}`),
	})
	s := newTestSession(transport)
	defer s.Shutdown(context.Background())

	result, err := s.Initialize(context.Background(), ClientInfo{Name: "relay", Version: "0.1.0"})
	if err != nil {
		t.Fatal(err)
	}
	if result.ServerInfo.Name != "test-server" {
		t.Fatalf("ServerInfo.Name = %q", result.ServerInfo.Name)
	}
}

func TestListToolsAndCallTool(t *testing.T) {
	transport := newFakeTransport()
	transport.respond(map[string]json.RawMessage{
		"initialize":  json.RawMessage(`{"protocolVersion":"2024-11-05","capabilities":{},"serverInfo":{"name":"s","version":"1"}}`),
		"tools/list":  json.RawMessage(`{"tools":[{"name":"search","description":"searches","inputSchema":{}}]}`),
		"tools/call":  json.RawMessage(`{"content":[{"type":"text","text":"result text"}],"isError":false}`),
	})
	s := newTestSession(transport)
	defer s.Shutdown(context.Background())

	if _, err := s.Initialize(context.Background(), ClientInfo{Name: "relay"}); err != nil {
		t.Fatal(err)
	}

	tools, err := s.ListTools(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tools.Tools) != 1 || tools.Tools[0].Name != "search" {
		t.Fatalf("tools = %+v", tools.Tools)
	}

	result, err := s.CallTool(context.Background(), "search", json.RawMessage(`{"query":"go"}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Content) != 1 || result.Content[0].Text != "result text" {
		t.Fatalf("result = %+v", result)
	}
}

func TestRPCErrorIsReturnedToCaller(t *testing.T) {
	transport := newFakeTransport()
	go func() {
		data := <-transport.writes
		var req struct {
			ID *uint64 `json:"id"`
		}
		_ = json.Unmarshal(data, &req)
		env := envelope{JSONRPC: "2.0", ID: req.ID, Error: &wireError{Code: -32601, Message: "method not found"}}
		raw, _ := json.Marshal(env)
		transport.push(raw)
	}()
	s := newTestSession(transport)
	defer s.Shutdown(context.Background())

	_, err := s.ListTools(context.Background())
	var rpcErr *Error
	if !errors.As(err, &rpcErr) || rpcErr.Kind != ErrRPCError {
		t.Fatalf("err = %v, want ErrRPCError", err)
	}
}

// TestShutdownReleasesPendingCall is scenario 6: a call is in flight with
// no response ever arriving, and Shutdown is invoked concurrently. The
// pending call must be released with a closed-session error rather than
// hang, and Shutdown itself must return once that cleanup is done.
func TestShutdownReleasesPendingCall(t *testing.T) {
	transport := newFakeTransport() // no respond(): nothing ever answers
	s := newTestSession(transport)

	callErr := make(chan error, 1)
	go func() {
		_, err := s.ListTools(context.Background())
		callErr <- err
	}()

	// Give the call a moment to reach the pending map before shutting down.
	time.Sleep(20 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}

	select {
	case err := <-callErr:
		var mcpErr *Error
		if !errors.As(err, &mcpErr) || mcpErr.Kind != ErrClosed {
			t.Fatalf("pending call error = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("pending call never returned after Shutdown")
	}
}

func TestCallAfterShutdownFailsImmediately(t *testing.T) {
	transport := newFakeTransport()
	s := newTestSession(transport)
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := s.ListTools(context.Background())
	var mcpErr *Error
	if !errors.As(err, &mcpErr) || mcpErr.Kind != ErrClosed {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	transport := newFakeTransport()
	s := newTestSession(transport)

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown() = %v", err)
	}
}

func TestServerNotificationIsPublished(t *testing.T) {
	transport := newFakeTransport()
	s := newTestSession(transport)
	defer s.Shutdown(context.Background())

	transport.push(json.RawMessage(`{"jsonrpc":"2.0","method":"notifications/progress","params":{"pct":50}}`))

	select {
	case n := <-s.Notifications():
		if n.Method != "notifications/progress" {
			t.Fatalf("Method = %q", n.Method)
		}
	case <-time.After(time.Second):
		t.Fatal("notification was never published")
	}
}
