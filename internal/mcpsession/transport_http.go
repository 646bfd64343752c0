package mcpsession

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpTransport speaks one JSON-RPC message per HTTP round trip: Write
// posts a request or notification and, once the response body arrives,
// hands it to a pending Read call. This keeps Transport's Read/Write
// split uniform across stdio and HTTP even though HTTP naturally pairs a
// request with its response.
type httpTransport struct {
	url     string
	headers map[string]string
	client  *http.Client

	incoming chan json.RawMessage
	errs     chan error
}

func newHTTPTransport(cfg ServerConfig) (*httpTransport, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpTransport{
		url:      cfg.URL,
		headers:  cfg.Headers,
		client:   &http.Client{Timeout: timeout},
		incoming: make(chan json.RawMessage, 32),
		errs:     make(chan error, 1),
	}, nil
}

func (t *httpTransport) Write(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("mcpsession: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	go func() {
		resp, err := t.client.Do(req)
		if err != nil {
			t.errs <- err
			return
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.errs <- err
			return
		}
		if resp.StatusCode >= 400 {
			t.errs <- fmt.Errorf("mcpsession: http %d: %s", resp.StatusCode, string(body))
			return
		}
		// A notification ack carries no body; there is nothing to match
		// a pending request to.
		if len(body) == 0 {
			return
		}
		t.incoming <- body
	}()
	return nil
}

func (t *httpTransport) Read(ctx context.Context) (json.RawMessage, error) {
	select {
	case body := <-t.incoming:
		return body, nil
	case err := <-t.errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *httpTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
