package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedBackend returns the queued errors before succeeding.
type scriptedBackend struct {
	errs  []error
	calls atomic.Int32
	block bool
}

func (s *scriptedBackend) Name() string      { return "fake" }
func (s *scriptedBackend) ModelName() string { return "fake-model" }

func (s *scriptedBackend) Generate(ctx context.Context, _ *Request) (*Result, error) {
	n := int(s.calls.Add(1)) - 1
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if n < len(s.errs) {
		return nil, s.errs[n]
	}
	return &Result{Text: "ok", FinishReason: "STOP"}, nil
}

func fastPolicy(attempts uint) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_RetriesTransientErrors(t *testing.T) {
	backend := &scriptedBackend{errs: []error{
		&APIError{StatusCode: http.StatusServiceUnavailable, Body: "busy"},
		&APIError{StatusCode: http.StatusTooManyRequests, Body: "quota"},
	}}
	c := NewClient(backend, ClientOptions{Retry: fastPolicy(3), Logger: quietLogger()})

	res, err := c.Generate(context.Background(), &Request{Contents: UserText("x"), Task: "summarize"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.EqualValues(t, 3, backend.calls.Load())
}

func TestClient_GivesUpAfterMaxAttempts(t *testing.T) {
	backend := &scriptedBackend{errs: []error{
		&APIError{StatusCode: 500, Body: "a"},
		&APIError{StatusCode: 502, Body: "b"},
		&APIError{StatusCode: 504, Body: "c"},
	}}
	c := NewClient(backend, ClientOptions{Retry: fastPolicy(2), Logger: quietLogger()})

	_, err := c.Generate(context.Background(), &Request{Contents: UserText("x")})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 502, apiErr.StatusCode)
	assert.EqualValues(t, 2, backend.calls.Load())
}

func TestClient_PermanentErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"bad request", &APIError{StatusCode: http.StatusBadRequest, Body: "bad"}},
		{"forbidden", &APIError{StatusCode: http.StatusForbidden, Body: "no"}},
		{"no candidates", ErrNoCandidates},
		{"empty content", &EmptyContentError{FinishReason: "SAFETY"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &scriptedBackend{errs: []error{tt.err}}
			c := NewClient(backend, ClientOptions{Retry: fastPolicy(5), Logger: quietLogger()})

			_, err := c.Generate(context.Background(), &Request{Contents: UserText("x")})
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.err.Error(), err.Error())
			assert.EqualValues(t, 1, backend.calls.Load())
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	backend := &scriptedBackend{block: true}
	c := NewClient(backend, ClientOptions{Timeout: 20 * time.Millisecond, Retry: fastPolicy(3), Logger: quietLogger()})

	start := time.Now()
	_, err := c.Generate(context.Background(), &Request{Contents: UserText("x")})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.EqualValues(t, 1, backend.calls.Load())
}

func TestClient_CallerCancellationStopsRetries(t *testing.T) {
	backend := &scriptedBackend{errs: []error{&APIError{StatusCode: 503}, &APIError{StatusCode: 503}, &APIError{StatusCode: 503}}}
	c := NewClient(backend, ClientOptions{
		Retry:  RetryPolicy{MaxAttempts: 3, InitialInterval: time.Minute, MaxInterval: time.Minute},
		Logger: quietLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Generate(ctx, &Request{Contents: UserText("x")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, backend.calls.Load())
}

func TestClient_HonoursRetryAfter(t *testing.T) {
	backend := &scriptedBackend{errs: []error{
		&APIError{StatusCode: http.StatusTooManyRequests, RetryAfter: 50 * time.Millisecond},
	}}
	c := NewClient(backend, ClientOptions{Retry: fastPolicy(2), Logger: quietLogger()})

	start := time.Now()
	res, err := c.Generate(context.Background(), &Request{Contents: UserText("x")})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.EqualValues(t, 2, backend.calls.Load())
}

func TestRetry_RetryAfterAppliesToOneWait(t *testing.T) {
	backend := &scriptedBackend{errs: []error{
		&APIError{StatusCode: http.StatusServiceUnavailable, RetryAfter: 50 * time.Millisecond},
		&APIError{StatusCode: http.StatusServiceUnavailable},
	}}

	var waits []time.Duration
	res, attempts, err := retry(context.Background(), fastPolicy(3),
		func(ctx context.Context) (*Result, error) { return backend.Generate(ctx, nil) },
		func(_ error, wait time.Duration) { waits = append(waits, wait) })
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.EqualValues(t, 3, attempts)

	require.Len(t, waits, 2)
	assert.GreaterOrEqual(t, waits[0], 50*time.Millisecond)
	assert.Less(t, waits[1], 50*time.Millisecond)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		wait      time.Duration
	}{
		{"nil", nil, false, 0},
		{"408", &APIError{StatusCode: 408}, true, 0},
		{"429 with retry-after", &APIError{StatusCode: 429, RetryAfter: 2 * time.Second}, true, 2 * time.Second},
		{"500", &APIError{StatusCode: 500}, true, 0},
		{"404", &APIError{StatusCode: 404}, false, 0},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("refused")}, true, 0},
		{"unexpected eof", io.ErrUnexpectedEOF, true, 0},
		{"canceled", context.Canceled, false, 0},
		{"other", errors.New("boom"), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, wait := Retryable(tt.err)
			assert.Equal(t, tt.retryable, ok)
			assert.Equal(t, tt.wait, wait)
		})
	}
}

func TestValidate(t *testing.T) {
	res, err := Validate(&Response{Candidates: []Candidate{{
		Content:      Content{Parts: []Part{{Text: " a"}, {Text: "b "}}},
		FinishReason: "STOP",
	}}})
	require.NoError(t, err)
	assert.Equal(t, "ab", res.Text)

	_, err = Validate(nil)
	assert.ErrorIs(t, err, ErrNoCandidates)

	_, err = Validate(&Response{PromptFeedback: &PromptFeedback{BlockReason: "SAFETY"}})
	assert.ErrorIs(t, err, ErrNoCandidates)
	assert.ErrorContains(t, err, "SAFETY")
}
