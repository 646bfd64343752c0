package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/relaycore/relay/pkg/models"
)

// imagePrefix is the sentinel a tool result's text content carries when it
// stands in for an image the caller already uploaded in a later message.
// The translator preserves this verbatim: it checks the prefix and, on
// match, substitutes a fixed placeholder rather than forwarding the text
// (and the remainder of the string past the prefix is discarded, matching
// the behavior this translation is ported from).
const imagePrefix = "image:"

const imagePlaceholder = "This tool result included an image that is uploaded in the next message."

// OpenAICompatible translates between the canonical message model and the
// OpenAI chat-completions wire format. Databricks and Ollama are thin
// Config variants of the same wire shape and reuse this type directly.
type OpenAICompatible struct {
	client *openai.Client
	cfg    Config
	name   string
}

// NewOpenAICompatible builds a translator for name (used in logs and error
// messages, e.g. "openai", "databricks", "ollama") pointed at cfg.Host.
func NewOpenAICompatible(name string, cfg Config) (*OpenAICompatible, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.Host
	return &OpenAICompatible{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		name:   name,
	}, nil
}

// Name implements Provider.
func (p *OpenAICompatible) Name() string {
	return p.name
}

// Model implements Provider.
func (p *OpenAICompatible) Model() string {
	return p.cfg.Model.Name
}

// Complete implements Provider.
func (p *OpenAICompatible) Complete(ctx context.Context, systemPrompt string, messages models.Conversation, tools []models.Tool) (*models.Message, models.Usage, error) {
	wireMessages, err := toOpenAIMessages(systemPrompt, messages, p.cfg)
	if err != nil {
		return nil, models.Usage{}, err
	}
	wireTools, err := toOpenAITools(tools)
	if err != nil {
		return nil, models.Usage{}, err
	}

	req := openai.ChatCompletionRequest{
		Model:    p.cfg.Model.Name,
		Messages: wireMessages,
	}
	if len(wireTools) > 0 {
		req.Tools = wireTools
	}
	if p.cfg.Model.MaxTokens > 0 {
		req.MaxTokens = p.cfg.Model.MaxTokens
	}
	if p.cfg.Model.Temperature > 0 {
		req.Temperature = float32(p.cfg.Model.Temperature)
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, models.Usage{}, p.classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, models.Usage{}, &Error{Reason: ReasonPermanent, Provider: p.name, Model: p.cfg.Model.Name, Message: "provider returned no choices"}
	}

	msg := fromOpenAIMessage(resp.Choices[0].Message, time.Now())
	usage := models.Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}
	return msg, usage, nil
}

// classify turns a go-openai request error into a provider.Error, using the
// wire-reported code first, then the HTTP status, then the free-text
// message as a last resort.
func (p *OpenAICompatible) classify(err error) error {
	var apiErr *openai.APIError
	if ok := asAPIError(err, &apiErr); ok {
		reason := ClassifyCode(fmt.Sprint(apiErr.Code))
		if reason == "" {
			reason = ClassifyStatus(apiErr.HTTPStatusCode)
		}
		if reason == "" {
			reason = ClassifyMessage(apiErr.Message)
		}
		if reason == "" {
			reason = ReasonPermanent
		}
		return &Error{
			Reason:   reason,
			Provider: p.name,
			Model:    p.cfg.Model.Name,
			Status:   apiErr.HTTPStatusCode,
			Code:     fmt.Sprint(apiErr.Code),
			Message:  apiErr.Message,
			Cause:    err,
		}
	}

	reason := ClassifyMessage(err.Error())
	if reason == "" {
		reason = ReasonTransient
	}
	return &Error{Reason: reason, Provider: p.name, Model: p.cfg.Model.Name, Cause: err}
}

// asAPIError is split out so tests can exercise classify without a live
// *openai.APIError, which the SDK does not expose a constructor for.
func asAPIError(err error, target **openai.APIError) bool {
	apiErr, ok := err.(*openai.APIError)
	if !ok {
		return false
	}
	*target = apiErr
	return true
}

// toOpenAIMessages builds the wire message array: an optional system
// message followed by one entry per canonical message, expanding tool
// requests and responses into the extra messages the OpenAI wire format
// requires (grounded on messages_to_openai_spec).
func toOpenAIMessages(systemPrompt string, conversation models.Conversation, cfg Config) ([]openai.ChatCompletionMessage, error) {
	var out []openai.ChatCompletionMessage
	if systemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}

	for _, msg := range conversation {
		role := openai.ChatMessageRoleUser
		if msg.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}

		converted := openai.ChatCompletionMessage{Role: role}
		var extra []openai.ChatCompletionMessage
		var imageParts []openai.ChatMessagePart

		for _, part := range msg.Content {
			switch c := part.(type) {
			case models.TextPart:
				converted.Content = c.Text

			case models.ImagePart:
				imageParts = append(imageParts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL: fmt.Sprintf("data:%s;base64,%s", c.MimeType, c.Data),
					},
				})

			case models.ToolRequestPart:
				if c.OK() {
					args := c.Call.Arguments
					if len(args) == 0 {
						args = json.RawMessage("{}")
					}
					converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
						ID:   c.ID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      models.SanitizeToolName(c.Call.Name),
							Arguments: string(args),
						},
					})
				} else {
					extra = append(extra, openai.ChatCompletionMessage{
						Role:       openai.ChatMessageRoleTool,
						Content:    "Error: " + c.Err.Error(),
						ToolCallID: c.ID,
					})
				}

			case models.ToolResponsePart:
				msgs, images := toOpenAIToolResponses(c, cfg)
				extra = append(extra, msgs...)
				if len(images) > 0 {
					extra = append(extra, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: images})
				}
			}
		}

		if len(imageParts) > 0 {
			if converted.Content != "" {
				imageParts = append([]openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: converted.Content}}, imageParts...)
				converted.Content = ""
			}
			converted.MultiContent = imageParts
		}

		if converted.Content != "" || len(converted.ToolCalls) > 0 || len(converted.MultiContent) > 0 {
			out = append(out, converted)
		}
		out = append(out, extra...)
	}

	return out, nil
}

// toOpenAIToolResponses expands one ToolResponsePart into the one-message-
// per-content-item shape OpenAI requires, applying the image sentinel. A
// genuine ImageContent item is replaced by the same sentinel text and its
// image data returned separately so the caller can forward it as the
// subsequent user message the wire format requires, when cfg resolves to
// ImageFormatOpenAI; otherwise the image's data and MIME type are written
// as plain text into the tool message instead.
func toOpenAIToolResponses(part models.ToolResponsePart, cfg Config) ([]openai.ChatCompletionMessage, []openai.ChatMessagePart) {
	if !part.Result.OK() {
		return []openai.ChatCompletionMessage{{
			Role:       openai.ChatMessageRoleTool,
			Content:    "Error: " + part.Result.Err.Error(),
			ToolCallID: part.ID,
		}}, nil
	}

	forwardImages := cfg.ResolvedImageFormat() == ImageFormatOpenAI

	var out []openai.ChatCompletionMessage
	var images []openai.ChatMessagePart
	for _, content := range part.Result.Contents {
		switch c := content.(type) {
		case models.TextContent:
			if strings.HasPrefix(c.Text, imagePrefix) {
				out = append(out, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    imagePlaceholder,
					ToolCallID: part.ID,
				})
				continue
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    c.Text,
				ToolCallID: part.ID,
			})
		case models.ImageContent:
			if !forwardImages {
				out = append(out, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    fmt.Sprintf("image data: %s, type: %s", c.Data, c.MimeType),
					ToolCallID: part.ID,
				})
				continue
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    imagePlaceholder,
				ToolCallID: part.ID,
			})
			images = append(images, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", c.MimeType, c.Data),
				},
			})
		}
	}
	return out, images
}

// toOpenAITools builds the wire tool array, sanitizing names and rejecting
// a collision that would otherwise silently shadow one tool with another.
func toOpenAITools(tools []models.Tool) ([]openai.Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(tools))
	out := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		name := models.SanitizeToolName(tool.Name)
		if seen[name] {
			return nil, fmt.Errorf("duplicate tool name after sanitization: %s", name)
		}
		seen[name] = true

		var schema map[string]any
		if len(tool.InputSchema) > 0 {
			if err := json.Unmarshal(tool.InputSchema, &schema); err != nil {
				schema = map[string]any{"type": "object", "properties": map[string]any{}}
			}
		} else {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}

		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        name,
				Description: tool.Description,
				Parameters:  schema,
			},
		})
	}
	return out, nil
}

// fromOpenAIMessage translates the assistant's reply back to canonical
// form: text first, then one ToolRequestPart per wire tool call, an
// invalid name becoming ToolErrorNotFound and unparsable arguments
// becoming ToolErrorInvalidParameters (grounded on openai_response_to_message).
func fromOpenAIMessage(msg openai.ChatCompletionMessage, now time.Time) *models.Message {
	out := models.NewAssistantMessage(now)
	if msg.Content != "" {
		out.WithText(msg.Content)
	}
	for _, tc := range msg.ToolCalls {
		if !models.IsValidToolName(tc.Function.Name) {
			out.WithToolRequest(tc.ID, models.ToolCall{}, models.NewToolError(
				models.ToolErrorNotFound,
				fmt.Sprintf("the provided function name %q had invalid characters, it must match [A-Za-z0-9_-]+", tc.Function.Name),
			))
			continue
		}
		var raw json.RawMessage
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &raw); err != nil {
			out.WithToolRequest(tc.ID, models.ToolCall{}, models.NewToolErrorFromCause(
				models.ToolErrorInvalidParameters,
				fmt.Sprintf("could not interpret tool use parameters for id %s", tc.ID),
				err,
			))
			continue
		}
		out.WithToolRequest(tc.ID, models.NewToolCallFromRaw(tc.Function.Name, raw), nil)
	}
	return out
}
