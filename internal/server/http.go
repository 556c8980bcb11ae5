package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/teemow/inboxdraft/internal/addon"
)

// HTTP server timeouts not covered by configuration.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
)

// AddonServerConfig configures the add-on HTTP server.
type AddonServerConfig struct {
	Addr string

	// BaseURL is the public URL the host calls. Plain HTTP is accepted only
	// for loopback hosts.
	BaseURL string

	TLSCertFile string
	TLSKeyFile  string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Actions serves /actions/; it is usually an addon.Router wrapped in
	// middleware.
	Actions http.Handler
	Health  *HealthChecker
	Logger  *slog.Logger
}

// AddonServer serves the add-on actions and the health endpoints.
type AddonServer struct {
	config     AddonServerConfig
	mu         sync.Mutex
	httpServer *http.Server
	addr       string
}

// NewAddonServer validates config and creates the server.
func NewAddonServer(config AddonServerConfig) (*AddonServer, error) {
	if config.Actions == nil {
		return nil, errors.New("actions handler is required")
	}
	if config.Addr == "" {
		return nil, errors.New("listen address is required")
	}
	if config.BaseURL != "" {
		if err := validateHTTPSRequirement(config.BaseURL); err != nil {
			return nil, err
		}
	}
	if (config.TLSCertFile == "") != (config.TLSKeyFile == "") {
		return nil, errors.New("TLS certificate and key must be set together")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &AddonServer{config: config, addr: config.Addr}, nil
}

// Handler returns the server's routes.
func (s *AddonServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(addon.ActionsPath, s.config.Actions)
	if s.config.Health != nil {
		s.config.Health.RegisterHealthEndpoints(mux)
	}
	return mux
}

// Start serves until Shutdown. It blocks. ready, when non-nil, is closed
// once the listener is bound.
func (s *AddonServer) Start(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	tls := s.config.TLSCertFile != ""
	s.config.Logger.Info("starting add-on server",
		slog.String("addr", ln.Addr().String()),
		slog.String("base_url", s.config.BaseURL),
		slog.Bool("tls", tls))
	if ready != nil {
		close(ready)
	}

	if tls {
		err = srv.ServeTLS(ln, s.config.TLSCertFile, s.config.TLSKeyFile)
	} else {
		err = srv.Serve(ln)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *AddonServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Addr returns the bound address once started, else the configured one.
func (s *AddonServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// validateHTTPSRequirement allows plain HTTP only for loopback hosts.
func validateHTTPSRequirement(baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		host := u.Hostname()
		if host == "localhost" || host == "127.0.0.1" || host == "::1" {
			return nil
		}
		return fmt.Errorf("the add-on host requires HTTPS (got: %s); use HTTPS or localhost for development", baseURL)
	default:
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}
}
