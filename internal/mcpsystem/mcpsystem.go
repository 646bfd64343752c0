// Package mcpsystem adapts a live MCP session into a system.System, so the
// registry can treat an out-of-process MCP server exactly like an
// in-process system: same prompt contribution, same qualified tool
// catalog, same dispatch path.
package mcpsystem

import (
	"context"
	"fmt"
	"sync"

	"github.com/relaycore/relay/internal/mcpsession"
	"github.com/relaycore/relay/pkg/models"
)

// System wraps one mcpsession.Session, caching its tool list until
// Refresh is called. The server's own description is static text
// supplied at construction, since MCP has no "describe yourself in
// prose" method; Status reflects the last known connection state.
type System struct {
	name    string
	desc    string
	session *mcpsession.Session

	mu     sync.RWMutex
	tools  []models.Tool
	status string
}

// New builds a System named name, backed by session. The caller is
// expected to have already called session.Initialize.
func New(name, description string, session *mcpsession.Session) *System {
	return &System{name: name, desc: description, session: session, status: "connected"}
}

func (s *System) Name() string    { return s.name }
func (s *System) Describe() string { return s.desc }

// Status returns the last status Refresh observed, defaulting to
// "connected" until the first refresh or failure.
func (s *System) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Tools returns the cached tool catalog. Call Refresh first to populate
// it; an unrefreshed System advertises no tools rather than blocking the
// registry's read path on a network round trip.
func (s *System) Tools() []models.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tools
}

// Refresh re-fetches the server's tool catalog via tools/list and updates
// Status on failure.
func (s *System) Refresh(ctx context.Context) error {
	result, err := s.session.ListTools(ctx)
	if err != nil {
		s.mu.Lock()
		s.status = fmt.Sprintf("tool list unavailable: %v", err)
		s.mu.Unlock()
		return err
	}

	tools := make([]models.Tool, len(result.Tools))
	for i, t := range result.Tools {
		schema := t.InputSchema
		if len(schema) == 0 {
			schema = []byte(`{}`)
		}
		tools[i] = models.Tool{Name: t.Name, Description: t.Description, InputSchema: schema}
	}

	s.mu.Lock()
	s.tools = tools
	s.status = "connected"
	s.mu.Unlock()
	return nil
}

// Execute forwards name/arguments to the session's tools/call and
// translates the result back into the in-process content model. An
// isError result is surfaced as a ToolErrorExecution, since MCP has no
// finer-grained failure taxonomy than a text blob and a boolean flag.
func (s *System) Execute(ctx context.Context, name string, arguments []byte) ([]models.Content, error) {
	result, err := s.session.CallTool(ctx, name, arguments)
	if err != nil {
		return nil, models.NewToolErrorFromCause(models.ToolErrorExecution, "mcp tool call failed", err)
	}

	contents := make([]models.Content, 0, len(result.Content))
	for _, c := range result.Content {
		switch c.Type {
		case "image":
			contents = append(contents, models.Image(c.Data, c.MimeType))
		default:
			contents = append(contents, models.Text(c.Text))
		}
	}

	if result.IsError {
		text := ""
		if len(contents) > 0 {
			if tc, ok := contents[0].(models.TextContent); ok {
				text = tc.Text
			}
		}
		return nil, models.NewToolError(models.ToolErrorExecution, text)
	}
	return contents, nil
}
