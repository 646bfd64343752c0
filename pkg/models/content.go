package models

// Content is the payload of a completed tool call: either text or an
// image. It is distinct from ContentPart (a message-level content item)
// because a tool result never itself carries a nested ToolRequest or
// ToolResponse; only Message content does.
type Content interface {
	isContent()
}

// TextContent is plain text content.
type TextContent struct {
	Text string
}

func (TextContent) isContent() {}

// Text builds a TextContent.
func Text(text string) TextContent {
	return TextContent{Text: text}
}

// ImageContent is base64-encoded image data with a MIME type.
type ImageContent struct {
	Data     string
	MimeType string
}

func (ImageContent) isContent() {}

// Image builds an ImageContent.
func Image(data, mimeType string) ImageContent {
	return ImageContent{Data: data, MimeType: mimeType}
}

// ToolResult is the outcome of dispatching one ToolCall: either a list of
// content items produced by the tool, or the ToolError it failed with.
type ToolResult struct {
	Contents []Content
	Err      *ToolError
}

// OK reports whether the dispatch succeeded.
func (r ToolResult) OK() bool {
	return r.Err == nil
}

// ToolResultOK builds a successful ToolResult.
func ToolResultOK(contents ...Content) ToolResult {
	return ToolResult{Contents: contents}
}

// ToolResultErr builds a failed ToolResult.
func ToolResultErr(err *ToolError) ToolResult {
	return ToolResult{Err: err}
}
