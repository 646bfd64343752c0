package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the counters and histograms the reply loop, the
// provider translators, and the MCP session emit while running.
//
// Usage:
//
//	m := observability.NewMetrics()
//	m.ProviderRequestDuration.WithLabelValues("anthropic", "claude-3-opus").Observe(time.Since(start).Seconds())
type Metrics struct {
	// ProviderRequestDuration measures one Provider.Complete call.
	// Labels: provider, model.
	ProviderRequestDuration *prometheus.HistogramVec

	// ProviderRequestCounter counts Provider.Complete calls by outcome.
	// Labels: provider, model, status (success|context_length_exceeded|transient|permanent).
	ProviderRequestCounter *prometheus.CounterVec

	// ProviderRetryCounter counts retry attempts issued by the loop.
	// Labels: provider, model.
	ProviderRetryCounter *prometheus.CounterVec

	// ProviderTokensUsed tracks token accounting per completion.
	// Labels: provider, model, kind (input|output).
	ProviderTokensUsed *prometheus.CounterVec

	// ToolDispatchDuration measures one System.Execute call via the
	// registry. Labels: system, tool.
	ToolDispatchDuration *prometheus.HistogramVec

	// ToolDispatchCounter counts tool dispatches by outcome.
	// Labels: system, tool, status (success|error).
	ToolDispatchCounter *prometheus.CounterVec

	// SessionRequestCounter counts MCP RPC calls by method and outcome.
	// Labels: method, status (success|error).
	SessionRequestCounter *prometheus.CounterVec

	// SessionRequestDuration measures one MCP RPC round trip. Labels: method.
	SessionRequestDuration *prometheus.HistogramVec

	// ActiveSessions tracks currently open MCP sessions.
	ActiveSessions prometheus.Gauge
}

// NewMetrics registers and returns a fresh Metrics instance against the
// default Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		ProviderRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_provider_request_duration_seconds",
				Help:    "Duration of Provider.Complete calls in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		ProviderRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_provider_requests_total",
				Help: "Total number of Provider.Complete calls by outcome",
			},
			[]string{"provider", "model", "status"},
		),

		ProviderRetryCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_provider_retries_total",
				Help: "Total number of retry attempts the reply loop issued on a transient failure",
			},
			[]string{"provider", "model"},
		),

		ProviderTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_provider_tokens_total",
				Help: "Total tokens reported by Provider.Complete, by kind",
			},
			[]string{"provider", "model", "kind"},
		),

		ToolDispatchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_tool_dispatch_duration_seconds",
				Help:    "Duration of one tool dispatch in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"system", "tool"},
		),

		ToolDispatchCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_tool_dispatches_total",
				Help: "Total number of tool dispatches by outcome",
			},
			[]string{"system", "tool", "status"},
		),

		SessionRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_mcp_requests_total",
				Help: "Total number of MCP RPC calls by method and outcome",
			},
			[]string{"method", "status"},
		),

		SessionRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_mcp_request_duration_seconds",
				Help:    "Duration of one MCP RPC round trip in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method"},
		),

		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_mcp_sessions_active",
				Help: "Number of currently open MCP sessions",
			},
		),
	}
}
