package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrNoUserToken is returned when an event carries no user OAuth token.
var ErrNoUserToken = errors.New("no user OAuth token in event")

// UserTokenSource wraps the user OAuth token from an add-on event. The host
// mints a fresh token for every event, so it is never refreshed.
func UserTokenSource(accessToken string) (oauth2.TokenSource, error) {
	if accessToken == "" {
		return nil, ErrNoUserToken
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}), nil
}

// DefaultTokenSource returns Application Default Credentials for scopes,
// defaulting to cloud-platform.
func DefaultTokenSource(ctx context.Context, scopes ...string) (oauth2.TokenSource, error) {
	if len(scopes) == 0 {
		scopes = []string{ScopeCloudPlatform}
	}
	ts, err := google.DefaultTokenSource(ctx, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to find default credentials: %w", err)
	}
	return ts, nil
}

// sharedTransport is the traced HTTP/1.1 transport every user client sends
// through, so connections to the Google APIs are pooled across events.
var sharedTransport = sync.OnceValue(func() http.RoundTripper {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.ForceAttemptHTTP2 = false
	return otelhttp.NewTransport(base)
})

// NewHTTPClient returns an HTTP client that authorises every request with ts
// and traces it with otelhttp. Clients share one connection pool.
func NewHTTPClient(ts oauth2.TokenSource) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, ts),
			Base:   sharedTransport(),
		},
	}
}
