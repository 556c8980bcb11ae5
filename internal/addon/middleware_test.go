package addon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"

	"github.com/teemow/inboxdraft/internal/logging"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/actions/homepage", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodPost, "/actions/homepage", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRateLimiter(t *testing.T) {
	assert.Nil(t, NewRateLimiter(0, 5, false, nil))

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2, false, nil)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "clients have separate buckets")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.Equal(t, 2, rl.Clients())

	now = now.Add(rl.idle + time.Second)
	assert.True(t, rl.Allow("10.0.0.3"))
	assert.Equal(t, 1, rl.Clients(), "idle clients are swept")
}

func TestRateLimit_Middleware(t *testing.T) {
	h := RateLimit(NewRateLimiter(1, 1, false, nil))(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/actions/homepage", nil)
	req.RemoteAddr = "192.0.2.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.NotNil(t, RateLimit(nil)(okHandler))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	assert.Equal(t, "192.0.2.1", clientIP(req, false))
	assert.Equal(t, "203.0.113.9", clientIP(req, true))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", clientIP(req, true))

	req.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", clientIP(req, false))
}

type fakeValidator struct {
	audience string
	payload  *idtoken.Payload
	err      error
}

func (f *fakeValidator) Validate(_ context.Context, token, audience string) (*idtoken.Payload, error) {
	f.audience = audience
	if f.err != nil {
		return nil, f.err
	}
	if token != "good" {
		return nil, errors.New("bad signature")
	}
	return f.payload, nil
}

func TestVerifyIDToken(t *testing.T) {
	v := &fakeValidator{payload: &idtoken.Payload{Claims: map[string]any{"email": "addon@system.gserviceaccount.com"}}}

	serve := func(h http.Handler, auth string) int {
		req := httptest.NewRequest(http.MethodPost, "/actions/homepage", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	h := VerifyIDToken(IDTokenOptions{Validator: v, Audience: "https://addon.example.com"})(okHandler)
	assert.Equal(t, http.StatusUnauthorized, serve(h, ""))
	assert.Equal(t, http.StatusUnauthorized, serve(h, "Basic abc"))
	assert.Equal(t, http.StatusUnauthorized, serve(h, "Bearer bad"))
	assert.Equal(t, http.StatusNoContent, serve(h, "Bearer good"))
	assert.Equal(t, "https://addon.example.com", v.audience)

	strict := VerifyIDToken(IDTokenOptions{Validator: v, Audience: "a", Email: "ADDON@system.gserviceaccount.com"})(okHandler)
	assert.Equal(t, http.StatusNoContent, serve(strict, "bearer good"))

	other := VerifyIDToken(IDTokenOptions{Validator: v, Audience: "a", Email: "someone@example.com"})(okHandler)
	assert.Equal(t, http.StatusUnauthorized, serve(other, "Bearer good"))
}

func TestInstrument(t *testing.T) {
	h := Instrument(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/actions/homepage", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestChain(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(okHandler, mw("a"), nil, mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b"}, order)
}
