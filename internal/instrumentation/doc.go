// Package instrumentation provides OpenTelemetry instrumentation for the
// inboxdraft add-on backend.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, route, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - http_rate_limited_total: Counter of requests rejected by the rate limiter
//
// Add-on Metrics:
//   - addon_action_invocations_total: Counter of actions by name and status
//   - addon_action_duration_seconds: Histogram of action durations
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Gmail/Calendar operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// Generative Model Metrics:
//   - llm_requests_total: Counter of model requests by backend, task and status
//   - llm_request_duration_seconds: Histogram of request durations including retries
//   - llm_retries_total: Counter of retried attempts by backend
//   - summary_cache_lookups_total: Counter of summary cache hits and misses
//
// # Tracing
//
// Spans are created for add-on actions (addon.<action>), model calls
// (llm.generate) and Google API calls (google.<service>.<operation>).
// Outgoing HTTP requests are traced by otelhttp transports.
//
// # Configuration
//
// DefaultConfig honours the standard environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: inboxdraft)
//
// The config package overlays values from the config file and flags.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordActionInvocation(ctx, "generateReply", "success", time.Since(start))
package instrumentation
