package agentloop

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/relaycore/relay/internal/provider"
	"github.com/relaycore/relay/pkg/models"
)

type fakeProvider struct {
	responses []*models.Message
	errs      []error
	calls     int
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-model" }

func (f *fakeProvider) Complete(ctx context.Context, systemPrompt string, messages models.Conversation, tools []models.Tool) (*models.Message, models.Usage, error) {
	idx := f.calls
	f.calls++
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	if err != nil {
		return nil, models.Usage{}, err
	}
	return f.responses[idx], models.Usage{}, nil
}

type fakeRegistry struct {
	tools    []models.Tool
	dispatch func(ctx context.Context, call models.ToolCall) ([]models.Content, *models.ToolError)
}

func (f *fakeRegistry) GetPrompt() string { return "fake prompt" }
func (f *fakeRegistry) GetTools() ([]models.Tool, error) { return f.tools, nil }
func (f *fakeRegistry) Dispatch(ctx context.Context, call models.ToolCall) ([]models.Content, *models.ToolError) {
	return f.dispatch(ctx, call)
}

func fixedNow() time.Time { return time.Unix(1000, 0) }

func collect(l *Loop, ctx context.Context, conv models.Conversation) (models.Conversation, error) {
	var out models.Conversation
	for msg, err := range l.Reply(ctx, conv) {
		if err != nil {
			return out, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func TestReplyTerminatesOnAssistantTextOnly(t *testing.T) {
	assistant := models.NewAssistantMessage(fixedNow()).WithText("hello there")
	prov := &fakeProvider{responses: []*models.Message{assistant}}
	reg := &fakeRegistry{}
	loop := &Loop{Provider: prov, Registry: reg, Retry: RetryPolicy{MaxAttempts: 1}, Now: fixedNow}

	conv := models.Conversation{models.NewUserMessage(fixedNow()).WithText("hi")}
	out, err := collect(loop, context.Background(), conv)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Text() != "hello there" {
		t.Fatalf("out = %+v", out)
	}
	if prov.calls != 1 {
		t.Fatalf("provider called %d times, want 1", prov.calls)
	}
}

func TestReplyDispatchesToolRequestsAndContinues(t *testing.T) {
	toolCall := assistantWithToolRequest("call-1", "files__read")
	final := models.NewAssistantMessage(fixedNow()).WithText("done")
	prov := &fakeProvider{responses: []*models.Message{toolCall, final}}

	dispatched := 0
	reg := &fakeRegistry{
		tools: []models.Tool{{Name: "files__read", InputSchema: json.RawMessage(`{}`)}},
		dispatch: func(ctx context.Context, call models.ToolCall) ([]models.Content, *models.ToolError) {
			dispatched++
			return []models.Content{models.Text("file contents")}, nil
		},
	}
	loop := &Loop{Provider: prov, Registry: reg, Retry: RetryPolicy{MaxAttempts: 1}, Now: fixedNow}

	conv := models.Conversation{models.NewUserMessage(fixedNow()).WithText("read the file")}
	out, err := collect(loop, context.Background(), conv)
	if err != nil {
		t.Fatal(err)
	}
	if dispatched != 1 {
		t.Fatalf("dispatched = %d, want 1", dispatched)
	}
	// assistant(tool request), user(tool response), assistant(text)
	if len(out) != 3 {
		t.Fatalf("out len = %d, want 3: %+v", len(out), out)
	}
	toolResp := out[1].Content[0].(models.ToolResponsePart)
	if toolResp.ID != "call-1" || !toolResp.Result.OK() {
		t.Fatalf("tool response = %+v", toolResp)
	}
	if out[2].Text() != "done" {
		t.Fatalf("final message = %+v", out[2])
	}
}

func TestReplyShortCircuitsInvalidToolRequestWithoutDispatch(t *testing.T) {
	toolErr := models.NewToolError(models.ToolErrorNotFound, "unknown tool")
	invalidCall := models.NewAssistantMessage(fixedNow()).WithToolRequest("call-1", models.ToolCall{}, toolErr)
	final := models.NewAssistantMessage(fixedNow()).WithText("done")
	prov := &fakeProvider{responses: []*models.Message{invalidCall, final}}

	dispatched := 0
	reg := &fakeRegistry{
		dispatch: func(ctx context.Context, call models.ToolCall) ([]models.Content, *models.ToolError) {
			dispatched++
			return nil, nil
		},
	}
	loop := &Loop{Provider: prov, Registry: reg, Retry: RetryPolicy{MaxAttempts: 1}, Now: fixedNow}

	conv := models.Conversation{models.NewUserMessage(fixedNow()).WithText("do the thing")}
	out, err := collect(loop, context.Background(), conv)
	if err != nil {
		t.Fatal(err)
	}
	if dispatched != 0 {
		t.Fatalf("dispatched = %d, want 0 for an invalid request", dispatched)
	}
	toolResp := out[1].Content[0].(models.ToolResponsePart)
	if toolResp.Result.OK() || toolResp.Result.Err != toolErr {
		t.Fatalf("tool response = %+v, want the original ToolError preserved", toolResp)
	}
}

func TestReplyRetriesTransientProviderFailureThenSucceeds(t *testing.T) {
	assistant := models.NewAssistantMessage(fixedNow()).WithText("ok")
	transient := &provider.Error{Reason: provider.ReasonTransient, Message: "try again"}
	prov := &fakeProvider{
		responses: []*models.Message{nil, assistant},
		errs:      []error{transient, nil},
	}
	reg := &fakeRegistry{}
	loop := &Loop{
		Provider: prov,
		Registry: reg,
		Now:      fixedNow,
		Retry: RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    time.Millisecond,
		},
	}

	out, err := collect(loop, context.Background(), models.Conversation{models.NewUserMessage(fixedNow()).WithText("hi")})
	if err != nil {
		t.Fatal(err)
	}
	if prov.calls != 2 {
		t.Fatalf("provider called %d times, want 2 (one retry)", prov.calls)
	}
	if len(out) != 1 || out[0].Text() != "ok" {
		t.Fatalf("out = %+v", out)
	}
}

func TestReplySurfacesPermanentProviderFailureImmediately(t *testing.T) {
	permanent := &provider.Error{Reason: provider.ReasonPermanent, Message: "bad request"}
	prov := &fakeProvider{errs: []error{permanent}}
	reg := &fakeRegistry{}
	loop := &Loop{Provider: prov, Registry: reg, Now: fixedNow, Retry: RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}}

	_, err := collect(loop, context.Background(), models.Conversation{models.NewUserMessage(fixedNow()).WithText("hi")})
	if err == nil {
		t.Fatal("expected an error")
	}
	if prov.calls != 1 {
		t.Fatalf("provider called %d times, want 1 (no retry on permanent failure)", prov.calls)
	}
}

func TestReplyStopsWhenConsumerStopsRanging(t *testing.T) {
	toolCall := assistantWithToolRequest("call-1", "files__read")
	final := models.NewAssistantMessage(fixedNow()).WithText("done")
	prov := &fakeProvider{responses: []*models.Message{toolCall, final}}
	reg := &fakeRegistry{
		tools: []models.Tool{{Name: "files__read", InputSchema: json.RawMessage(`{}`)}},
		dispatch: func(ctx context.Context, call models.ToolCall) ([]models.Content, *models.ToolError) {
			return []models.Content{models.Text("x")}, nil
		},
	}
	loop := &Loop{Provider: prov, Registry: reg, Retry: RetryPolicy{MaxAttempts: 1}, Now: fixedNow}

	seen := 0
	for _, err := range loop.Reply(context.Background(), models.Conversation{models.NewUserMessage(fixedNow()).WithText("hi")}) {
		if err != nil {
			t.Fatal(err)
		}
		seen++
		break
	}
	if seen != 1 {
		t.Fatalf("seen = %d, want 1", seen)
	}
	if prov.calls != 1 {
		t.Fatalf("provider called %d times after early stop, want 1", prov.calls)
	}
}

func assistantWithToolRequest(id, qualifiedName string) *models.Message {
	call := models.NewToolCallFromRaw(qualifiedName, json.RawMessage(`{}`))
	return models.NewAssistantMessage(fixedNow()).WithToolRequest(id, call, nil)
}
