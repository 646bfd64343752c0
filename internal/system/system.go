// Package system implements the registry of "systems" (C4): named units
// that each contribute a slice of the prompt and a set of tools, composed
// by the agent loop into one provider-facing tool catalog and dispatch
// table.
package system

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/relaycore/relay/pkg/models"
)

// Separator joins a system name and an unqualified tool name into a
// qualified one (<system>__<tool>).
const Separator = "__"

// System is a named unit contributing a description, a live status
// snapshot, and a set of unqualified tools it can execute. Implementations
// must be safe for concurrent Execute calls; Describe, Status, and Tools
// are called once per turn on the registry's read path, and Tools again
// for every call Dispatch routes to the system.
type System interface {
	// Name identifies the system and becomes the qualifier prefix on every
	// tool it exposes.
	Name() string

	// Describe returns static text describing the system's purpose, used
	// to build the assembled system prompt.
	Describe() string

	// Status returns a point-in-time snapshot string, refreshed on every
	// call (e.g. current working directory, open file, session state).
	Status() string

	// Tools returns the system's tool descriptors with unqualified names.
	Tools() []models.Tool

	// Execute runs one of this system's tools by its unqualified name.
	Execute(ctx context.Context, name string, arguments []byte) ([]models.Content, error)
}

// Registry composes a set of Systems into one prompt and one qualified
// tool catalog, and routes dispatch by qualified name back to the owning
// system.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	systems map[string]System
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{systems: make(map[string]System)}
}

// AddSystem registers a system. Names must be unique; registering the same
// name twice is a programming error.
func (r *Registry) AddSystem(s System) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := s.Name()
	if name == "" {
		return fmt.Errorf("system: empty system name")
	}
	if _, exists := r.systems[name]; exists {
		return fmt.Errorf("system: duplicate system name %q", name)
	}
	r.systems[name] = s
	r.order = append(r.order, name)
	return nil
}

// GetPrompt deterministically concatenates each system's description and
// current status snapshot, in registration order.
func (r *Registry) GetPrompt() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	for i, name := range r.order {
		s := r.systems[name]
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n%s\n\nStatus: %s", name, s.Describe(), s.Status())
	}
	return b.String()
}

// DuplicateToolNameError is returned by GetTools when two systems (or two
// tools within one system) qualify to the same name.
type DuplicateToolNameError struct {
	Name string
}

func (e *DuplicateToolNameError) Error() string {
	return fmt.Sprintf("system: duplicate qualified tool name %q", e.Name)
}

// GetTools returns the union of every system's tools, each name qualified
// with its owning system (<system>__<tool>). A qualified-name collision is
// a registration error, returned rather than silently shadowing one tool
// with another.
func (r *Registry) GetTools() ([]models.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Tool
	seen := make(map[string]bool)
	for _, name := range r.order {
		s := r.systems[name]
		for _, tool := range s.Tools() {
			qualified := Qualify(name, tool.Name)
			if seen[qualified] {
				return nil, &DuplicateToolNameError{Name: qualified}
			}
			seen[qualified] = true
			out = append(out, models.Tool{
				Name:        qualified,
				Description: tool.Description,
				InputSchema: tool.InputSchema,
			})
		}
	}
	return out, nil
}

// Qualify prefixes an unqualified tool name with its owning system.
func Qualify(systemName, toolName string) string {
	return systemName + Separator + toolName
}

// Split reverses Qualify, splitting on the first separator. ok is false if
// qualified does not contain the separator.
func Split(qualified string) (systemName, toolName string, ok bool) {
	idx := strings.Index(qualified, Separator)
	if idx < 0 {
		return "", "", false
	}
	return qualified[:idx], qualified[idx+len(Separator):], true
}

// Dispatch splits a qualified tool call's name, looks up the owning
// system, and forwards the unqualified call. An unknown system, an unknown
// tool, or a malformed qualified name yields ToolErrorNotFound; arguments
// that fail the tool's input schema yield ToolErrorInvalidParameters. A
// *models.ToolError returned by the system is passed through unchanged;
// any other failure from the system is wrapped as ToolErrorExecution.
func (r *Registry) Dispatch(ctx context.Context, call models.ToolCall) ([]models.Content, *models.ToolError) {
	systemName, toolName, ok := Split(call.Name)
	if !ok {
		return nil, models.NewToolError(models.ToolErrorNotFound, fmt.Sprintf("tool name %q is not qualified", call.Name))
	}

	r.mu.RLock()
	s, exists := r.systems[systemName]
	r.mu.RUnlock()
	if !exists {
		return nil, models.NewToolError(models.ToolErrorNotFound, fmt.Sprintf("unknown system %q", systemName))
	}

	tool, found := findTool(s.Tools(), toolName)
	if !found {
		return nil, models.NewToolError(models.ToolErrorNotFound, fmt.Sprintf("unknown tool %q on system %q", toolName, systemName))
	}
	if toolErr := validateArguments(tool, models.NewToolCallFromRaw(toolName, call.Arguments)); toolErr != nil {
		return nil, toolErr
	}

	contents, err := s.Execute(ctx, toolName, call.Arguments)
	if err != nil {
		var toolErr *models.ToolError
		if asToolError(err, &toolErr) {
			return nil, toolErr
		}
		return nil, models.NewToolErrorFromCause(models.ToolErrorExecution, err.Error(), err)
	}
	return contents, nil
}

func findTool(tools []models.Tool, name string) (models.Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return models.Tool{}, false
}

func asToolError(err error, target **models.ToolError) bool {
	te, ok := err.(*models.ToolError)
	if !ok {
		return false
	}
	*target = te
	return true
}
