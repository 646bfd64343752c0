package models

import (
	"encoding/json"
	"regexp"
)

// toolNamePattern is the character class every tool name must satisfy.
var toolNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// IsValidToolName reports whether name matches [A-Za-z0-9_-]+.
func IsValidToolName(name string) bool {
	return name != "" && toolNamePattern.MatchString(name)
}

// SanitizeToolName replaces every character outside [A-Za-z0-9_-] with an
// underscore. Sanitization is one-way: it is applied to outgoing wire
// payloads only and never used to reinterpret an incoming name.
func SanitizeToolName(name string) string {
	out := make([]byte, 0, len(name))
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
			out = append(out, byte(c))
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// ToolCall is a model-emitted intent to invoke a named function with JSON
// arguments. The constructors in this package do not check Name; the
// provider translators check each wire name with IsValidToolName and record
// an invalid one as a ToolErrorNotFound on the ToolRequestPart instead of
// building a ToolCall.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// NewToolCall builds a ToolCall from an arbitrary argument value, marshaling
// it to JSON. It returns the marshal error if arguments cannot be encoded;
// callers that parse arguments from the wire should use
// NewToolCallFromRaw instead.
func NewToolCall(name string, arguments any) (ToolCall, error) {
	raw, err := json.Marshal(arguments)
	if err != nil {
		return ToolCall{}, err
	}
	return ToolCall{Name: name, Arguments: raw}, nil
}

// NewToolCallFromRaw builds a ToolCall from already-serialized arguments.
func NewToolCallFromRaw(name string, arguments json.RawMessage) ToolCall {
	return ToolCall{Name: name, Arguments: arguments}
}

// Tool is a descriptor advertised to a provider: a name, a human
// description, and a JSON-Schema object describing its arguments.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}
