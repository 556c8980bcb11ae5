package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/teemow/inboxdraft/internal/assistant"
	"github.com/teemow/inboxdraft/internal/cache"
	"github.com/teemow/inboxdraft/internal/instrumentation"
)

// ServerContext holds the process-wide dependencies shared by the add-on
// backend and the MCP tools.
type ServerContext struct {
	ctx       context.Context
	cancel    context.CancelFunc
	assistant *assistant.Service
	cache     *cache.Store
	metrics   *instrumentation.Metrics
	audit     *instrumentation.AuditLogger
	logger    *slog.Logger
	mu        sync.RWMutex
	shutdown  bool
}

// Deps are the dependencies of a ServerContext. Cache, Metrics and Audit
// may be nil.
type Deps struct {
	Assistant *assistant.Service
	Cache     *cache.Store
	Metrics   *instrumentation.Metrics
	Audit     *instrumentation.AuditLogger
	Logger    *slog.Logger
}

// NewServerContext creates a new server context. The returned context is
// cancelled by Shutdown.
func NewServerContext(ctx context.Context, deps Deps) (*ServerContext, error) {
	if deps.Assistant == nil {
		return nil, errors.New("assistant is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:       shutdownCtx,
		cancel:    cancel,
		assistant: deps.Assistant,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		audit:     deps.Audit,
		logger:    deps.Logger,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Assistant returns the assistant service.
func (sc *ServerContext) Assistant() *assistant.Service {
	return sc.assistant
}

// Cache returns the summary cache, or nil when caching is disabled.
func (sc *ServerContext) Cache() *cache.Store {
	return sc.cache
}

// Metrics returns the metrics recorder. It may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger. It may be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.audit
}

// Logger returns the process logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Ping checks the dependencies that can fail at runtime.
func (sc *ServerContext) Ping(ctx context.Context) error {
	if sc.cache == nil {
		return nil
	}
	return sc.cache.Ping(ctx)
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and closes the cache. It is safe to
// call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return sc.cache.Close()
}
