package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/relaycore/relay/pkg/models"
)

// Anthropic translates between the canonical message model and the
// Anthropic Messages API's content-block wire format.
type Anthropic struct {
	client anthropic.Client
	cfg    Config
}

// NewAnthropic builds a translator pointed at cfg.Host (or the SDK default
// when empty) using cfg.APIKey.
func NewAnthropic(cfg Config) (*Anthropic, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Host != "" {
		opts = append(opts, option.WithBaseURL(cfg.Host))
	}
	return &Anthropic{client: anthropic.NewClient(opts...), cfg: cfg}, nil
}

// Name implements Provider.
func (p *Anthropic) Name() string {
	return "anthropic"
}

// Model implements Provider.
func (p *Anthropic) Model() string {
	return p.cfg.Model.Name
}

// Complete implements Provider.
func (p *Anthropic) Complete(ctx context.Context, systemPrompt string, conversation models.Conversation, tools []models.Tool) (*models.Message, models.Usage, error) {
	wireMessages, err := toAnthropicMessages(conversation, p.cfg)
	if err != nil {
		return nil, models.Usage{}, err
	}
	wireTools, err := toAnthropicTools(tools)
	if err != nil {
		return nil, models.Usage{}, err
	}

	maxTokens := int64(p.cfg.Model.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.cfg.Model.Name),
		MaxTokens: maxTokens,
		Messages:  wireMessages,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if len(wireTools) > 0 {
		params.Tools = wireTools
	}
	if p.cfg.Model.Temperature > 0 {
		params.Temperature = anthropic.Float(p.cfg.Model.Temperature)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, models.Usage{}, p.classify(err)
	}

	msg := fromAnthropicMessage(resp, time.Now())
	usage := models.Usage{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
		TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}
	return msg, usage, nil
}

// anthropicErrorPayload unwraps the JSON body Anthropic attaches to a
// non-2xx response, since *anthropic.Error exposes only a raw string.
type anthropicErrorPayload struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func (p *Anthropic) classify(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return &Error{Reason: ReasonTransient, Provider: p.Name(), Model: p.cfg.Model.Name, Cause: err}
	}

	var payload anthropicErrorPayload
	_ = json.Unmarshal([]byte(apiErr.RawJSON()), &payload)

	reason := ClassifyStatus(apiErr.StatusCode)
	// Anthropic has no dedicated context-length code; it reports
	// invalid_request_error with a distinguishing message instead.
	if payload.Error.Type == "invalid_request_error" {
		if r := ClassifyMessage(payload.Error.Message); r == ReasonContextLengthExceeded {
			reason = r
		}
	}
	if reason == "" {
		reason = ReasonPermanent
	}

	return &Error{
		Reason:    reason,
		Provider:  p.Name(),
		Model:     p.cfg.Model.Name,
		Status:    apiErr.StatusCode,
		Code:      payload.Error.Type,
		Message:   payload.Error.Message,
		RequestID: apiErr.RequestID,
		Cause:     err,
	}
}

// toAnthropicMessages builds the wire message array. Anthropic has no
// system or tool role: tool requests become tool_use blocks and tool
// responses become tool_result blocks inside a user message.
func toAnthropicMessages(conversation models.Conversation, cfg Config) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(conversation))
	for _, msg := range conversation {
		var blocks []anthropic.ContentBlockParamUnion
		var trailingImages []anthropic.ContentBlockParamUnion
		for _, part := range msg.Content {
			switch c := part.(type) {
			case models.TextPart:
				blocks = append(blocks, anthropic.NewTextBlock(c.Text))

			case models.ImagePart:
				blocks = append(blocks, anthropicImageBlock(c.Data, c.MimeType))

			case models.ToolRequestPart:
				if !c.OK() {
					blocks = append(blocks, anthropic.NewToolResultBlock(c.ID, "Error: "+c.Err.Error(), true))
					continue
				}
				var input any
				if len(c.Call.Arguments) > 0 {
					if err := json.Unmarshal(c.Call.Arguments, &input); err != nil {
						return nil, fmt.Errorf("unmarshal tool call arguments for %s: %w", c.Call.Name, err)
					}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(c.ID, input, models.SanitizeToolName(c.Call.Name)))

			case models.ToolResponsePart:
				result, images := toAnthropicToolResult(c, cfg)
				blocks = append(blocks, result...)
				trailingImages = append(trailingImages, images...)
			}
		}
		if len(blocks) > 0 {
			if msg.Role == models.RoleAssistant {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			} else {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}
		}
		if len(trailingImages) > 0 {
			out = append(out, anthropic.NewUserMessage(trailingImages...))
		}
	}
	return out, nil
}

// anthropicImageBlock builds a base64 image content block.
func anthropicImageBlock(data, mimeType string) anthropic.ContentBlockParamUnion {
	return anthropic.ContentBlockParamUnion{
		OfImage: &anthropic.ImageBlockParam{
			Source: anthropic.ImageBlockParamSourceUnion{
				OfBase64: &anthropic.Base64ImageSourceParam{
					MediaType: anthropic.Base64ImageSourceMediaType(mimeType),
					Data:      data,
				},
			},
		},
	}
}

// toAnthropicToolResult builds the tool_result block for one response,
// applying the same image-prefix sentinel as the OpenAI-compatible path. A
// genuine ImageContent item is replaced by the sentinel placeholder and its
// image data returned separately so the caller can forward it as the
// subsequent user message the wire format requires, when cfg resolves to
// ImageFormatAnthropic; otherwise the image is dropped with only the
// placeholder left behind, matching this translator's prior behavior for a
// format it cannot natively embed.
func toAnthropicToolResult(part models.ToolResponsePart, cfg Config) ([]anthropic.ContentBlockParamUnion, []anthropic.ContentBlockParamUnion) {
	if !part.Result.OK() {
		return []anthropic.ContentBlockParamUnion{anthropic.NewToolResultBlock(part.ID, "Error: "+part.Result.Err.Error(), true)}, nil
	}

	forwardImages := cfg.ResolvedImageFormat() == ImageFormatAnthropic

	var text strings.Builder
	var images []anthropic.ContentBlockParamUnion
	for _, content := range part.Result.Contents {
		switch c := content.(type) {
		case models.TextContent:
			if strings.HasPrefix(c.Text, imagePrefix) {
				text.WriteString(imagePlaceholder)
				continue
			}
			text.WriteString(c.Text)
		case models.ImageContent:
			text.WriteString(imagePlaceholder)
			if forwardImages {
				images = append(images, anthropicImageBlock(c.Data, c.MimeType))
			}
		}
	}
	return []anthropic.ContentBlockParamUnion{anthropic.NewToolResultBlock(part.ID, text.String(), false)}, images
}

// toAnthropicTools builds the wire tool array, rejecting a post-
// sanitization name collision.
func toAnthropicTools(tools []models.Tool) ([]anthropic.ToolUnionParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(tools))
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		name := models.SanitizeToolName(tool.Name)
		if seen[name] {
			return nil, fmt.Errorf("duplicate tool name after sanitization: %s", name)
		}
		seen[name] = true

		var schema anthropic.ToolInputSchemaParam
		if len(tool.InputSchema) > 0 {
			_ = json.Unmarshal(tool.InputSchema, &schema)
		}
		param := anthropic.ToolUnionParamOfTool(schema, name)
		if param.OfTool != nil {
			param.OfTool.Description = anthropic.String(tool.Description)
		}
		out = append(out, param)
	}
	return out, nil
}

// fromAnthropicMessage translates the assistant's reply back to canonical
// form, splitting text and tool_use blocks the same way the OpenAI path
// splits content from tool_calls.
func fromAnthropicMessage(resp *anthropic.Message, now time.Time) *models.Message {
	out := models.NewAssistantMessage(now)
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.WithText(block.AsText().Text)
		case "tool_use":
			toolUse := block.AsToolUse()
			if !models.IsValidToolName(toolUse.Name) {
				out.WithToolRequest(toolUse.ID, models.ToolCall{}, models.NewToolError(
					models.ToolErrorNotFound,
					fmt.Sprintf("the provided function name %q had invalid characters, it must match [A-Za-z0-9_-]+", toolUse.Name),
				))
				continue
			}
			raw, err := json.Marshal(toolUse.Input)
			if err != nil {
				out.WithToolRequest(toolUse.ID, models.ToolCall{}, models.NewToolErrorFromCause(
					models.ToolErrorInvalidParameters,
					fmt.Sprintf("could not interpret tool use parameters for id %s", toolUse.ID),
					err,
				))
				continue
			}
			out.WithToolRequest(toolUse.ID, models.NewToolCallFromRaw(toolUse.Name, raw), nil)
		}
	}
	return out
}
