// Package observe provides application-wide observability primitives for
// pctxd: OpenTelemetry metrics, distributed tracing, structured logging, and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all pctxd metrics.
const meterName = "github.com/lambdamechanic/pctxgo"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ExecutionDuration tracks end-to-end code-mode script execution
	// latency.
	ExecutionDuration metric.Float64Histogram

	// MCPToolCallDuration tracks the latency of a single MCP tool call.
	MCPToolCallDuration metric.Float64Histogram

	// CallbackDuration tracks the latency of a WebSocket client-callback
	// round trip.
	CallbackDuration metric.Float64Histogram

	// --- Counters ---

	// ExecutionsTotal counts code-mode script executions. Use with
	// attributes: attribute.String("status", "ok"|"error"|"timeout").
	ExecutionsTotal metric.Int64Counter

	// OpCalls counts sandbox op invocations. Use with attributes:
	//   attribute.String("op", "callMCPTool"|"callLocalTool"|"fetch"), attribute.String("status", ...)
	OpCalls metric.Int64Counter

	// MCPConnectFailures counts failed MCP server connection attempts. Use
	// with attribute: attribute.String("server", ...)
	MCPConnectFailures metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live code-mode sessions.
	ActiveSessions metric.Int64UpDownCounter

	// ActiveWebSocketConnections tracks the number of attached WebSocket
	// bridge connections.
	ActiveWebSocketConnections metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) suited to
// tool-call and script-execution latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ExecutionDuration, err = m.Float64Histogram("pctxd.execution.duration",
		metric.WithDescription("Latency of a code-mode script execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.MCPToolCallDuration, err = m.Float64Histogram("pctxd.mcp_tool_call.duration",
		metric.WithDescription("Latency of a single MCP tool call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CallbackDuration, err = m.Float64Histogram("pctxd.callback.duration",
		metric.WithDescription("Latency of a WebSocket client-callback round trip."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ExecutionsTotal, err = m.Int64Counter("pctxd.executions",
		metric.WithDescription("Total code-mode script executions by status."),
	); err != nil {
		return nil, err
	}
	if met.OpCalls, err = m.Int64Counter("pctxd.op_calls",
		metric.WithDescription("Total sandbox op invocations by op name and status."),
	); err != nil {
		return nil, err
	}
	if met.MCPConnectFailures, err = m.Int64Counter("pctxd.mcp_connect_failures",
		metric.WithDescription("Total failed MCP server connection attempts by server."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("pctxd.active_sessions",
		metric.WithDescription("Number of live code-mode sessions."),
	); err != nil {
		return nil, err
	}
	if met.ActiveWebSocketConnections, err = m.Int64UpDownCounter("pctxd.active_websocket_connections",
		metric.WithDescription("Number of attached WebSocket bridge connections."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("pctxd.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordExecution is a convenience method that records an execution counter
// increment and duration with the standard attribute set.
func (m *Metrics) RecordExecution(ctx context.Context, status string, duration float64) {
	m.ExecutionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.ExecutionDuration.Record(ctx, duration, metric.WithAttributes(attribute.String("status", status)))
}

// RecordOpCall is a convenience method that records a sandbox op invocation
// counter increment with the standard attribute set.
func (m *Metrics) RecordOpCall(ctx context.Context, op, status string) {
	m.OpCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("status", status),
		),
	)
}

// RecordMCPConnectFailure is a convenience method that records an MCP
// connection failure counter increment.
func (m *Metrics) RecordMCPConnectFailure(ctx context.Context, server string) {
	m.MCPConnectFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("server", server)),
	)
}
