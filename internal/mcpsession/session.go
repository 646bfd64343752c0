package mcpsession

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/relaycore/relay/internal/observability"
)

// outgoingQueueCapacity bounds the session's outgoing queue;
// producers suspend when it is full.
const outgoingQueueCapacity = 32

// notificationSinkCapacity bounds the buffered channel server-initiated
// notifications are published to. The sink drops the oldest notification
// on overflow rather than blocking the background task, since nothing in
// this session depends on notification delivery for correctness.
const notificationSinkCapacity = 32

// rpcResult is what a pending request's one-shot sink receives: either a
// decoded result or a terminal error.
type rpcResult struct {
	raw json.RawMessage
	err error
}

// outgoingItem is one entry of the outgoing queue: a request (expects a
// response) or a notification (its sink completes immediately on write).
type outgoingItem struct {
	isRequest bool
	id        uint64
	method    string
	params    any
	sink      chan rpcResult
}

// Session is a single MCP connection: one background task owns the
// transport and a map of in-flight requests keyed by id, and the pending
// map is never touched outside that task.
type Session struct {
	// ID identifies this connection for logging and metrics; it has no
	// protocol meaning and is never sent on the wire.
	ID string

	transport Transport

	outgoing chan *outgoingItem
	nextID   atomic.Uint64

	closed       atomic.Bool
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	doneCh       chan struct{}

	notifications chan *Notification

	cancel context.CancelFunc

	// Metrics and Tracer are optional; a nil value disables instrumentation
	// for this session without changing its behavior.
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// NewSession builds a transport via factory and spawns the session's
// single background task. Initialize must be the first call made on the
// returned session.
func NewSession(ctx context.Context, cfg ServerConfig, factory TransportFactory) (*Session, error) {
	if factory == nil {
		factory = NewTransport
	}
	transport, err := factory(ctx, cfg)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:            uuid.NewString(),
		transport:     transport,
		outgoing:      make(chan *outgoingItem, outgoingQueueCapacity),
		shutdownCh:    make(chan struct{}),
		doneCh:        make(chan struct{}),
		notifications: make(chan *Notification, notificationSinkCapacity),
		cancel:        cancel,
	}
	go s.run(runCtx)
	return s, nil
}

// Notifications returns the channel server-initiated notifications are
// published to. Reading from it is optional; an unread notification is
// eventually dropped to make room for newer ones.
func (s *Session) Notifications() <-chan *Notification {
	return s.notifications
}

// Initialize performs the protocol handshake and sends the
// notifications/initialized notification. Must be the first call.
func (s *Session) Initialize(ctx context.Context, client ClientInfo) (*InitializeResult, error) {
	params := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"sampling":     nil,
			"experimental": nil,
			"roots":        map[string]any{"listChanged": true},
		},
		"clientInfo": client,
	}

	var result InitializeResult
	if err := s.call(ctx, "initialize", params, &result); err != nil {
		return nil, err
	}
	if err := s.notify(ctx, "notifications/initialized", struct{}{}); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResources calls resources/list.
func (s *Session) ListResources(ctx context.Context) (*ListResourcesResult, error) {
	var result ListResourcesResult
	if err := s.call(ctx, "resources/list", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReadResource calls resources/read.
func (s *Session) ReadResource(ctx context.Context, uri string) (*ReadResourceResult, error) {
	var result ReadResourceResult
	if err := s.call(ctx, "resources/read", map[string]any{"uri": uri}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListTools calls tools/list.
func (s *Session) ListTools(ctx context.Context) (*ListToolsResult, error) {
	var result ListToolsResult
	if err := s.call(ctx, "tools/list", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CallTool calls tools/call.
func (s *Session) CallTool(ctx context.Context, name string, arguments json.RawMessage) (*CallToolResult, error) {
	params := map[string]any{"name": name}
	if len(arguments) > 0 {
		params["arguments"] = arguments
	}
	var result CallToolResult
	if err := s.call(ctx, "tools/call", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Shutdown is idempotent: it marks the session closed, signals the
// background task, and waits for it to terminate.
func (s *Session) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.closed.Store(true)
		close(s.shutdownCh)
		if s.Metrics != nil {
			s.Metrics.ActiveSessions.Dec()
		}
	})
	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call sends a request and waits for its matching response.
func (s *Session) call(ctx context.Context, method string, params any, out any) error {
	ctx, span := s.Tracer.StartSessionCall(ctx, method)
	start := time.Now()
	var callErr error
	defer func() {
		if s.Metrics != nil {
			status := "success"
			if callErr != nil {
				status = "error"
			}
			s.Metrics.SessionRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
			s.Metrics.SessionRequestCounter.WithLabelValues(method, status).Inc()
		}
		observability.EndWithError(span, &callErr)
	}()

	callErr = s.sendCall(ctx, method, params, out)
	return callErr
}

// sendCall does the actual request/response round trip; call wraps it with
// tracing and metrics.
func (s *Session) sendCall(ctx context.Context, method string, params any, out any) error {
	if s.closed.Load() {
		return &Error{Kind: ErrClosed}
	}

	id := s.nextID.Add(1)
	sink := make(chan rpcResult, 1)
	item := &outgoingItem{isRequest: true, id: id, method: method, params: params, sink: sink}

	select {
	case s.outgoing <- item:
	case <-s.doneCh:
		return &Error{Kind: ErrClosed}
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case res := <-sink:
		if res.err != nil {
			return res.err
		}
		if out != nil && len(res.raw) > 0 {
			if err := json.Unmarshal(res.raw, out); err != nil {
				return &Error{Kind: ErrDeserializeFailed, Cause: err}
			}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// notify sends a notification. The sink completes as soon as the
// background task has written it to the transport.
func (s *Session) notify(ctx context.Context, method string, params any) error {
	if s.closed.Load() {
		return &Error{Kind: ErrClosed}
	}

	sink := make(chan rpcResult, 1)
	item := &outgoingItem{isRequest: false, method: method, params: params, sink: sink}

	select {
	case s.outgoing <- item:
	case <-s.doneCh:
		return &Error{Kind: ErrClosed}
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case res := <-sink:
		return res.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the session's single background task: it owns the transport and
// the pending-requests map, and is the only goroutine that ever touches
// either.
func (s *Session) run(ctx context.Context) {
	pending := make(map[uint64]chan rpcResult)
	defer func() {
		s.closed.Store(true)
		s.cancel()
		for id, sink := range pending {
			sink <- rpcResult{err: &Error{Kind: ErrClosed, Message: "session shutdown"}}
			delete(pending, id)
		}
		_ = s.transport.Close()
		close(s.doneCh)
	}()

	incoming := make(chan json.RawMessage)
	readErr := make(chan error, 1)
	go func() {
		for {
			raw, err := s.transport.Read(ctx)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case incoming <- raw:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case item := <-s.outgoing:
			s.handleOutgoing(ctx, item, pending)

		case raw := <-incoming:
			s.handleIncoming(raw, pending)

		case err := <-readErr:
			for id, sink := range pending {
				sink <- rpcResult{err: &Error{Kind: ErrSendFailed, Cause: err}}
				delete(pending, id)
			}
			return

		case <-s.shutdownCh:
			return
		}
	}
}

func (s *Session) handleOutgoing(ctx context.Context, item *outgoingItem, pending map[uint64]chan rpcResult) {
	var payload any
	if item.isRequest {
		payload = wireRequest{JSONRPC: "2.0", ID: item.id, Method: item.method, Params: item.params}
	} else {
		payload = wireNotification{JSONRPC: "2.0", Method: item.method, Params: item.params}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		item.sink <- rpcResult{err: fmt.Errorf("mcpsession: marshal %s: %w", item.method, err)}
		return
	}

	if err := s.transport.Write(ctx, data); err != nil {
		sendErr := &Error{Kind: ErrSendFailed, Cause: err}
		item.sink <- rpcResult{err: sendErr}
		return
	}

	if item.isRequest {
		pending[item.id] = item.sink
	} else {
		item.sink <- rpcResult{}
	}
}

func (s *Session) handleIncoming(raw json.RawMessage, pending map[uint64]chan rpcResult) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}

	if env.Method != "" {
		s.publishNotification(&Notification{Method: env.Method, Params: env.Params})
		return
	}

	if env.ID == nil {
		return
	}
	sink, ok := pending[*env.ID]
	if !ok {
		return
	}
	delete(pending, *env.ID)

	switch {
	case env.Error != nil:
		sink <- rpcResult{err: &Error{Kind: ErrRPCError, Code: env.Error.Code, Message: env.Error.Message}}
	case env.Result != nil:
		sink <- rpcResult{raw: env.Result}
	default:
		sink <- rpcResult{err: &Error{Kind: ErrMissingResult}}
	}
}

// publishNotification is only ever called from run, so it never competes
// with another writer for the sink's capacity.
func (s *Session) publishNotification(n *Notification) {
	select {
	case s.notifications <- n:
		return
	default:
	}
	select {
	case <-s.notifications:
	default:
	}
	select {
	case s.notifications <- n:
	default:
	}
}
