package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps the global OpenTelemetry tracer for the spans the reply
// loop and the MCP session open around a provider call or an RPC round
// trip. Wiring an exporter and a TracerProvider is server scaffolding and
// out of scope here; callers that want traces to go anywhere configure
// the global provider themselves (otel.SetTracerProvider) before
// constructing a Tracer.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer returns a Tracer for instrumentationName (typically the
// package path of the caller).
func NewTracer(instrumentationName string) *Tracer {
	return &Tracer{tracer: otel.Tracer(instrumentationName)}
}

// StartProviderCall opens a span around one Provider.Complete call. A nil
// Tracer is a valid no-op receiver, so callers can wire it unconditionally
// and leave tracing off by leaving the field unset.
func (t *Tracer) StartProviderCall(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "provider.complete", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("relay.provider", provider),
			attribute.String("relay.model", model),
		))
}

// StartToolDispatch opens a span around one Registry.Dispatch call.
func (t *Tracer) StartToolDispatch(ctx context.Context, system, tool string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "system.dispatch", trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("relay.system", system),
			attribute.String("relay.tool", tool),
		))
}

// StartSessionCall opens a span around one MCP RPC round trip.
func (t *Tracer) StartSessionCall(ctx context.Context, method string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "mcp."+method, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("relay.mcp_method", method)))
}

// EndWithError records err on span, if non-nil, and sets the span status
// accordingly, then ends it. Call via defer right after Start.
func EndWithError(span trace.Span, err *error) {
	if err != nil && *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
