package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrRoute     = "route"
	attrStatus    = "status"
	attrAction    = "action"
	attrService   = "service"
	attrOperation = "operation"
	attrBackend   = "backend"
	attrTask      = "task"
	attrResult    = "result"
)

// Metrics records the add-on's operational metrics. The zero value is a
// valid no-op recorder.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	actionInvocationsTotal metric.Int64Counter
	actionDuration         metric.Float64Histogram

	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	llmRequestsTotal   metric.Int64Counter
	llmRequestDuration metric.Float64Histogram
	llmRetriesTotal    metric.Int64Counter

	summaryCacheLookups metric.Int64Counter
	rateLimitedTotal    metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.actionInvocationsTotal, err = meter.Int64Counter(
		"addon_action_invocations_total",
		metric.WithDescription("Total number of add-on action invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create addon_action_invocations_total counter: %w", err)
	}

	m.actionDuration, err = meter.Float64Histogram(
		"addon_action_duration_seconds",
		metric.WithDescription("Add-on action duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create addon_action_duration_seconds histogram: %w", err)
	}

	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	m.llmRequestsTotal, err = meter.Int64Counter(
		"llm_requests_total",
		metric.WithDescription("Total number of generative model requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_requests_total counter: %w", err)
	}

	m.llmRequestDuration, err = meter.Float64Histogram(
		"llm_request_duration_seconds",
		metric.WithDescription("Generative model request duration in seconds, retries included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 20.0, 40.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_request_duration_seconds histogram: %w", err)
	}

	m.llmRetriesTotal, err = meter.Int64Counter(
		"llm_retries_total",
		metric.WithDescription("Total number of retried generative model attempts"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_retries_total counter: %w", err)
	}

	m.summaryCacheLookups, err = meter.Int64Counter(
		"summary_cache_lookups_total",
		metric.WithDescription("Summary cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary_cache_lookups_total counter: %w", err)
	}

	m.rateLimitedTotal, err = meter.Int64Counter(
		"http_rate_limited_total",
		metric.WithDescription("Requests rejected by the per-client rate limiter"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_rate_limited_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request. route must be a low-cardinality
// pattern such as "/actions/{name}", never the raw path.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrRoute, route),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordActionInvocation records one dispatched add-on action.
func (m *Metrics) RecordActionInvocation(ctx context.Context, action, status string, duration time.Duration) {
	if m == nil || m.actionInvocationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrAction, action),
		attribute.String(attrStatus, status),
	)
	m.actionInvocationsTotal.Add(ctx, 1, attrs)
	m.actionDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordGoogleAPIOperation records a Gmail or Calendar API call.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.googleAPIOperationsTotal.Add(ctx, 1, attrs)
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordLLMRequest records a completed generative model call.
func (m *Metrics) RecordLLMRequest(ctx context.Context, backend, task, status string, duration time.Duration) {
	if m == nil || m.llmRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrBackend, backend),
		attribute.String(attrTask, task),
		attribute.String(attrStatus, status),
	)
	m.llmRequestsTotal.Add(ctx, 1, attrs)
	m.llmRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordLLMRetry counts one retried attempt against backend.
func (m *Metrics) RecordLLMRetry(ctx context.Context, backend string) {
	if m == nil || m.llmRetriesTotal == nil {
		return
	}
	m.llmRetriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrBackend, backend)))
}

// RecordSummaryCacheLookup records a cache hit or miss.
func (m *Metrics) RecordSummaryCacheLookup(ctx context.Context, result string) {
	if m == nil || m.summaryCacheLookups == nil {
		return
	}
	m.summaryCacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordRateLimited counts a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimited(ctx context.Context) {
	if m == nil || m.rateLimitedTotal == nil {
		return
	}
	m.rateLimitedTotal.Add(ctx, 1)
}
