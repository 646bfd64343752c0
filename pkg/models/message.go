// Package models holds the canonical conversation entities the agent loop
// and the provider translators share: messages, their content parts, tool
// calls, and the structured errors that flow alongside them.
//
// A Message is immutable once it leaves the reply loop; builders
// (WithText, WithToolRequest, ...) append to the message in place and
// return the same pointer so callers can chain construction before the
// message is emitted, mirroring the
// `with_*` builder chain this model is grounded on.
package models

import "time"

// Role is the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentPart is one atom a Message carries: text, an image, a tool
// request, or a tool response. Consumers should exhaustively type-switch
// on it rather than dispatch by a string tag.
type ContentPart interface {
	isContentPart()
}

// TextPart is plain text content within a message.
type TextPart struct {
	Text string
}

func (TextPart) isContentPart() {}

// ImagePart is base64-encoded image content within a message.
type ImagePart struct {
	Data     string
	MimeType string
}

func (ImagePart) isContentPart() {}

// ToolRequestPart is an assistant's request to invoke a tool. Call is
// either a valid ToolCall or the ToolError explaining why one could not be
// constructed (e.g. an invalid name or unparsable arguments), a
// ToolRequestPart never carries both.
type ToolRequestPart struct {
	ID   string
	Call ToolCall
	Err  *ToolError
}

func (ToolRequestPart) isContentPart() {}

// OK reports whether Call is valid (no construction error).
func (p ToolRequestPart) OK() bool {
	return p.Err == nil
}

// ToolRequestOK builds a successful ToolRequestPart.
func ToolRequestOK(id string, call ToolCall) ToolRequestPart {
	return ToolRequestPart{ID: id, Call: call}
}

// ToolRequestErr builds a failed ToolRequestPart: the model asked for a
// tool call that could not be constructed.
func ToolRequestErr(id string, err *ToolError) ToolRequestPart {
	return ToolRequestPart{ID: id, Err: err}
}

// ToolResponsePart is the result of dispatching an earlier ToolRequestPart
// with the same ID, in the same conversation.
type ToolResponsePart struct {
	ID     string
	Result ToolResult
}

func (ToolResponsePart) isContentPart() {}

// Message is one turn of a Conversation: a role, a creation timestamp,
// and an ordered list of content parts.
type Message struct {
	Role    Role
	Created int64
	Content []ContentPart
}

// NewUserMessage returns an empty user message stamped with now.
func NewUserMessage(now time.Time) *Message {
	return &Message{Role: RoleUser, Created: now.Unix()}
}

// NewAssistantMessage returns an empty assistant message stamped with now.
func NewAssistantMessage(now time.Time) *Message {
	return &Message{Role: RoleAssistant, Created: now.Unix()}
}

// WithContent appends an arbitrary content part and returns the message.
func (m *Message) WithContent(part ContentPart) *Message {
	m.Content = append(m.Content, part)
	return m
}

// WithText appends a TextPart.
func (m *Message) WithText(text string) *Message {
	return m.WithContent(TextPart{Text: text})
}

// WithImage appends an ImagePart.
func (m *Message) WithImage(data, mimeType string) *Message {
	return m.WithContent(ImagePart{Data: data, MimeType: mimeType})
}

// WithToolRequest appends a ToolRequestPart.
func (m *Message) WithToolRequest(id string, call ToolCall, err *ToolError) *Message {
	return m.WithContent(ToolRequestPart{ID: id, Call: call, Err: err})
}

// WithToolResponse appends a ToolResponsePart.
func (m *Message) WithToolResponse(id string, result ToolResult) *Message {
	return m.WithContent(ToolResponsePart{ID: id, Result: result})
}

// ToolRequests returns the ToolRequestPart items in document order.
func (m *Message) ToolRequests() []ToolRequestPart {
	var out []ToolRequestPart
	for _, c := range m.Content {
		if tr, ok := c.(ToolRequestPart); ok {
			out = append(out, tr)
		}
	}
	return out
}

// Text concatenates every TextPart in the message, in document order.
func (m *Message) Text() string {
	var out string
	for _, c := range m.Content {
		if t, ok := c.(TextPart); ok {
			out += t.Text
		}
	}
	return out
}

// Conversation is an ordered list of canonical messages.
type Conversation []*Message

// Usage reports token accounting for one provider completion. Unknown
// fields may be reported as zero.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
