// Package agentloop implements the agent reply loop (C5): the state
// machine that alternates provider calls and tool dispatches, translating
// nothing itself (that is the provider's job) and instead driving the
// two collaborators (a Provider and a Registry) through one turn at a
// time, yielding each message as it is produced.
package agentloop

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/relaycore/relay/internal/observability"
	"github.com/relaycore/relay/internal/provider"
	"github.com/relaycore/relay/internal/system"
	"github.com/relaycore/relay/pkg/models"
)

// DefaultConcurrency bounds how many tool dispatches run at once within a
// single turn when Loop.Concurrency is left at zero.
const DefaultConcurrency = 4

// Registry is the capability the loop needs from the system registry
// (C4): current prompt text, the current qualified tool catalog, and
// dispatch of one qualified call. It is satisfied by *system.Registry.
type Registry interface {
	GetPrompt() string
	GetTools() ([]models.Tool, error)
	Dispatch(ctx context.Context, call models.ToolCall) ([]models.Content, *models.ToolError)
}

// Loop drives the reply algorithm against one Provider and one
// Registry. A Loop is safe for concurrent use across independent Reply
// calls; each call drives at most one provider request at a time, per the
// spec's resource model.
type Loop struct {
	Provider    provider.Provider
	Registry    Registry
	Retry       RetryPolicy
	Concurrency int

	// Now stamps emitted messages; overridable for deterministic tests.
	Now func() time.Time

	// Metrics and Tracer are optional; a nil value disables instrumentation
	// for that collaborator without changing Loop's behavior.
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// New builds a Loop with default retry policy and concurrency.
func New(p provider.Provider, r Registry) *Loop {
	return &Loop{
		Provider:    p,
		Registry:    r,
		Retry:       DefaultRetryPolicy(),
		Concurrency: DefaultConcurrency,
	}
}

func (l *Loop) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *Loop) concurrency() int {
	if l.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return l.Concurrency
}

// Reply implements the public operation `reply(conversation)`: a lazy,
// finite, non-restartable sequence of messages produced during one turn.
// conversation must be non-empty and end with a user message; Reply does
// not validate this and instead relies on the provider to reject a
// malformed history.
//
// The sequence terminates as soon as an assistant message carries no
// tool-request parts, or as soon as an error occurs, in which case the
// final yielded pair carries that error and no message. If the consumer
// stops ranging early, in-flight tool dispatches and any in-flight
// provider call are canceled via ctx and no further message is emitted.
func (l *Loop) Reply(ctx context.Context, conversation models.Conversation) iter.Seq2[*models.Message, error] {
	return func(yield func(*models.Message, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		conv := make(models.Conversation, len(conversation))
		copy(conv, conversation)

		for {
			tools, err := l.Registry.GetTools()
			if err != nil {
				yield(nil, err)
				return
			}
			systemPrompt := l.Registry.GetPrompt()

			assistant, _, err := l.complete(ctx, systemPrompt, conv, tools)
			if err != nil {
				yield(nil, err)
				return
			}

			if !yield(assistant, nil) {
				return
			}
			conv = append(conv, assistant)

			requests := assistant.ToolRequests()
			if len(requests) == 0 {
				return
			}

			results := l.dispatchAll(ctx, requests)
			userMsg := models.NewUserMessage(l.now())
			for i, req := range requests {
				userMsg.WithToolResponse(req.ID, results[i])
			}

			if !yield(userMsg, nil) {
				return
			}
			conv = append(conv, userMsg)
		}
	}
}

// complete calls the provider, retrying a Transient failure with
// exponential backoff. ContextLengthExceeded and Permanent
// failures surface on the first attempt.
func (l *Loop) complete(ctx context.Context, systemPrompt string, conv models.Conversation, tools []models.Tool) (*models.Message, models.Usage, error) {
	retry := l.Retry
	if retry.MaxAttempts == 0 && retry.BaseDelay == 0 {
		retry = DefaultRetryPolicy()
	}

	providerName, model := l.Provider.Name(), l.Provider.Model()
	ctx, span := l.Tracer.StartProviderCall(ctx, providerName, model)
	var spanErr error
	defer observability.EndWithError(span, &spanErr)

	start := time.Now()
	attempt := 0
	var msg *models.Message
	var usage models.Usage
	err := retry.run(ctx, provider.IsRetryable, func() error {
		if attempt > 0 && l.Metrics != nil {
			l.Metrics.ProviderRetryCounter.WithLabelValues(providerName, model).Inc()
		}
		attempt++
		m, u, cErr := l.Provider.Complete(ctx, systemPrompt, conv, tools)
		if cErr != nil {
			return cErr
		}
		msg, usage = m, u
		return nil
	})
	spanErr = err

	if l.Metrics != nil {
		l.Metrics.ProviderRequestDuration.WithLabelValues(providerName, model).Observe(time.Since(start).Seconds())
		l.Metrics.ProviderRequestCounter.WithLabelValues(providerName, model, requestStatus(err)).Inc()
		if err == nil {
			l.Metrics.ProviderTokensUsed.WithLabelValues(providerName, model, "input").Add(float64(usage.InputTokens))
			l.Metrics.ProviderTokensUsed.WithLabelValues(providerName, model, "output").Add(float64(usage.OutputTokens))
		}
	}
	return msg, usage, err
}

// requestStatus labels a completed provider call for ProviderRequestCounter.
func requestStatus(err error) string {
	if err == nil {
		return "success"
	}
	if provider.IsContextLengthExceeded(err) {
		return "context_length_exceeded"
	}
	if provider.IsRetryable(err) {
		return "transient"
	}
	return "permanent"
}

// dispatchAll invokes Registry.Dispatch for every valid tool request in
// parallel, bounded by Concurrency, and returns results in request order.
// An invalid request (one that already carries a ToolError) short-circuits
// to that error without dispatch. A dispatch error never
// aborts the others.
func (l *Loop) dispatchAll(ctx context.Context, requests []models.ToolRequestPart) []models.ToolResult {
	results := make([]models.ToolResult, len(requests))
	sem := make(chan struct{}, l.concurrency())
	var wg sync.WaitGroup

	for i, req := range requests {
		if !req.OK() {
			results[i] = models.ToolResultErr(req.Err)
			continue
		}

		wg.Add(1)
		go func(idx int, call models.ToolCall) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = models.ToolResultErr(models.NewToolErrorFromCause(
					models.ToolErrorExecution, "dispatch canceled", ctx.Err()))
				return
			}

			sysName, toolName, _ := system.Split(call.Name)
			ctx, span := l.Tracer.StartToolDispatch(ctx, sysName, toolName)
			start := time.Now()

			contents, toolErr := l.Registry.Dispatch(ctx, call)

			if l.Metrics != nil {
				status := "success"
				if toolErr != nil {
					status = "error"
				}
				l.Metrics.ToolDispatchDuration.WithLabelValues(sysName, toolName).Observe(time.Since(start).Seconds())
				l.Metrics.ToolDispatchCounter.WithLabelValues(sysName, toolName, status).Inc()
			}
			var spanErr error
			if toolErr != nil {
				spanErr = toolErr
			}
			observability.EndWithError(span, &spanErr)

			if toolErr != nil {
				results[idx] = models.ToolResultErr(toolErr)
				return
			}
			results[idx] = models.ToolResultOK(contents...)
		}(i, req.Call)
	}

	wg.Wait()
	return results
}
