// Package observability provides client-side metrics for API traffic and polling.
package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the client metrics:
// - Latency: API request and execution wait durations
// - Traffic: requests issued, executions started, polls performed
// - Errors: non-2xx replies
type Metrics struct {
	meter metric.Meter

	// API request metrics (Latency, Traffic, Errors)
	APIRequestDuration metric.Float64Histogram
	APIRequestsTotal   metric.Int64Counter
	APIErrorsTotal     metric.Int64Counter

	// Execution polling metrics (Latency, Traffic)
	ExecutionsStarted     metric.Int64Counter
	ExecutionPolls        metric.Int64Counter
	ExecutionWaitDuration metric.Float64Histogram
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
// The returned handler serves the scrape endpoint.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("rundeck")
	m := &Metrics{meter: meter}

	m.APIRequestDuration, err = meter.Float64Histogram(
		"rundeck_api_request_duration_seconds",
		metric.WithDescription("API request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, nil, err
	}

	m.APIRequestsTotal, err = meter.Int64Counter(
		"rundeck_api_requests_total",
		metric.WithDescription("Total number of API requests issued"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.APIErrorsTotal, err = meter.Int64Counter(
		"rundeck_api_errors_total",
		metric.WithDescription("Total number of API error replies (4xx and 5xx)"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ExecutionsStarted, err = meter.Int64Counter(
		"rundeck_executions_started_total",
		metric.WithDescription("Total number of executions submitted"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ExecutionPolls, err = meter.Int64Counter(
		"rundeck_execution_polls_total",
		metric.WithDescription("Total number of execution status polls"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ExecutionWaitDuration, err = meter.Float64Histogram(
		"rundeck_execution_wait_duration_seconds",
		metric.WithDescription("Time spent waiting for executions to reach a terminal status"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600, 900, 1800),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// RecordAPIRequest records one API request.
func (m *Metrics) RecordAPIRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	attrs := metric.WithAttributes(
		methodAttr(method),
		pathAttr(path),
		statusAttr(statusCode),
	)

	m.APIRequestDuration.Record(ctx, durationSeconds, attrs)
	m.APIRequestsTotal.Add(ctx, 1, attrs)

	if statusCode >= 400 {
		m.APIErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordExecutionStarted records a submitted execution.
func (m *Metrics) RecordExecutionStarted(ctx context.Context, project string) {
	m.ExecutionsStarted.Add(ctx, 1, metric.WithAttributes(projectAttr(project)))
}

// RecordExecutionPoll records one status poll.
func (m *Metrics) RecordExecutionPoll(ctx context.Context) {
	m.ExecutionPolls.Add(ctx, 1)
}

// RecordExecutionWait records the time spent waiting for an execution and
// whether it reached a terminal status.
func (m *Metrics) RecordExecutionWait(ctx context.Context, status string, timedOut bool, durationSeconds float64) {
	m.ExecutionWaitDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		statusStrAttr(status),
		timedOutAttr(timedOut),
	))
}
