package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"

	"github.com/teemow/inboxdraft/internal/config"
	"github.com/teemow/inboxdraft/internal/instrumentation"
	"github.com/teemow/inboxdraft/internal/logging"
)

// Generator produces text from a Request.
type Generator interface {
	Generate(ctx context.Context, req *Request) (*Result, error)
	Name() string
}

// Backend is a Generator that knows its model id.
type Backend interface {
	Generator
	ModelName() string
}

// Client wraps a Backend with the timeout, retry, tracing and metrics
// contract shared by every call.
type Client struct {
	backend Backend
	timeout time.Duration
	policy  RetryPolicy
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// ClientOptions configures NewClient. Zero values are valid.
type ClientOptions struct {
	Timeout time.Duration
	Retry   RetryPolicy
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// NewClient wraps backend.
func NewClient(backend Backend, opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		backend: backend,
		timeout: opts.Timeout,
		policy:  opts.Retry.withDefaults(),
		metrics: opts.Metrics,
		logger:  logging.WithBackend(opts.Logger, backend.Name(), backend.ModelName()),
	}
}

// Name returns the backend name.
func (c *Client) Name() string { return c.backend.Name() }

// Generate runs req against the backend, retrying transient failures until
// the attempts are exhausted or the per-call timeout expires.
func (c *Client) Generate(ctx context.Context, req *Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	task := req.Task
	if task == "" {
		task = "generate"
	}

	ctx, span := instrumentation.StartLLMSpan(ctx, c.backend.Name(), c.backend.ModelName(), task)
	start := time.Now()
	logger := logging.FromContext(ctx, c.logger).With(logging.Task(task))

	result, attempts, err := retry(ctx, c.policy, func(ctx context.Context) (*Result, error) {
		return c.backend.Generate(ctx, req)
	}, func(err error, wait time.Duration) {
		c.metrics.RecordLLMRetry(ctx, c.backend.Name())
		logger.Warn("model call failed, retrying", logging.Err(err), slog.Duration("wait", wait))
	})

	duration := time.Since(start)
	span.SetAttributes(attribute.Int(instrumentation.SpanAttrAttempts, int(attempts)))

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		logger.Error("model call failed",
			logging.Err(err),
			slog.Int("attempts", int(attempts)),
			slog.Duration(logging.KeyDuration, duration))
	} else {
		span.SetAttributes(attribute.String(instrumentation.SpanAttrFinishReason, result.FinishReason))
		logger.Debug("model call completed",
			slog.String("finish_reason", result.FinishReason),
			slog.Int("total_tokens", int(result.Usage.TotalTokenCount)),
			slog.Duration(logging.KeyDuration, duration))
	}
	c.metrics.RecordLLMRequest(ctx, c.backend.Name(), task, status, duration)
	instrumentation.EndSpan(span, err)

	if err != nil {
		return nil, err
	}
	return result, nil
}

// Deps carries the collaborators New needs for the configured backend.
type Deps struct {
	// Tokens authorises Vertex REST calls. Required for the vertex backend.
	Tokens  oauth2.TokenSource
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// New builds the configured backend wrapped in a Client.
func New(ctx context.Context, cfg config.LLMConfig, deps Deps) (*Client, error) {
	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	var backend Backend
	var err error
	switch cfg.Backend {
	case config.BackendVertex, "":
		backend, err = NewVertexClient(cfg.Project, cfg.Location, cfg.Model, deps.Tokens, WithHTTPClient(httpClient))
	case config.BackendGenAI:
		backend, err = NewGenAIClient(ctx, GenAIConfig{
			APIKey:     cfg.APIKey,
			Project:    cfg.Project,
			Location:   cfg.Location,
			Model:      cfg.Model,
			HTTPClient: httpClient,
		})
	case config.BackendBedrock:
		backend, err = NewBedrockClient(ctx, cfg.Region, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	return NewClient(backend, ClientOptions{
		Timeout: cfg.Timeout,
		Retry: RetryPolicy{
			MaxAttempts:     cfg.MaxAttempts,
			InitialInterval: cfg.InitialBackoff,
			MaxInterval:     cfg.MaxBackoff,
		},
		Metrics: deps.Metrics,
		Logger:  deps.Logger,
	}), nil
}
