package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const maxResponseBytes = 8 << 20

// VertexClient calls the Vertex AI generateContent REST endpoint.
type VertexClient struct {
	Project  string
	Location string
	Model    string

	tokens     oauth2.TokenSource
	httpClient *http.Client
	baseURL    string
}

// VertexOption configures a VertexClient.
type VertexOption func(*VertexClient)

// WithHTTPClient sets the HTTP client used for calls.
func WithHTTPClient(c *http.Client) VertexOption {
	return func(v *VertexClient) { v.httpClient = c }
}

// WithBaseURL replaces the scheme and host of the endpoint, e.g. for an
// httptest server or a private service connect address.
func WithBaseURL(u string) VertexOption {
	return func(v *VertexClient) { v.baseURL = strings.TrimRight(u, "/") }
}

// NewVertexClient returns a client authorised by tokens.
func NewVertexClient(project, location, model string, tokens oauth2.TokenSource, opts ...VertexOption) (*VertexClient, error) {
	if project == "" || location == "" || model == "" {
		return nil, fmt.Errorf("vertex client requires project, location and model")
	}
	if tokens == nil {
		return nil, fmt.Errorf("vertex client requires a token source")
	}
	v := &VertexClient{
		Project:    project,
		Location:   location,
		Model:      model,
		tokens:     tokens,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Name returns the backend name.
func (v *VertexClient) Name() string { return "vertex" }

// ModelName returns the configured model id.
func (v *VertexClient) ModelName() string { return v.Model }

// Endpoint returns the generateContent URL for the configured model.
func (v *VertexClient) Endpoint() string {
	base := v.baseURL
	if base == "" {
		host := v.Location + "-aiplatform.googleapis.com"
		if v.Location == "global" {
			host = "aiplatform.googleapis.com"
		}
		base = "https://" + host
	}
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		base, v.Project, v.Location, v.Model)
}

// Generate performs a single generateContent call.
func (v *VertexClient) Generate(ctx context.Context, req *Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	token, err := v.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	token.SetAuthHeader(httpReq)

	resp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var decoded Response
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return Validate(&decoded)
}

// parseRetryAfter understands delay-seconds and HTTP-date values.
func parseRetryAfter(h string) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(h); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
