package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/api/idtoken"

	"github.com/teemow/inboxdraft/internal/addon"
	"github.com/teemow/inboxdraft/internal/cards"
	"github.com/teemow/inboxdraft/internal/config"
	"github.com/teemow/inboxdraft/internal/instrumentation"
	"github.com/teemow/inboxdraft/internal/logging"
	"github.com/teemow/inboxdraft/internal/server"
)

const (
	startupTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Gmail add-on HTTP backend",
		Long: `Run the HTTP backend the Google Workspace add-on calls.

The add-on host POSTs every trigger and card action to /actions/{name} and
renders the cards returned. Health endpoints are served on the same port,
Prometheus metrics on --metrics-addr.

Outside of local development the backend must be reachable over HTTPS,
either with --tls-cert-file/--tls-key-file or behind a TLS-terminating
proxy, and --base-url must name the public URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.String("addr", ":8080", "Listen address of the add-on backend")
	f.String("base-url", "", "Public URL of the add-on backend, e.g. https://addon.example.com")
	f.String("tls-cert-file", "", "TLS certificate file")
	f.String("tls-key-file", "", "TLS private key file")
	f.Bool("verify-id-token", false, "Require the add-on host's system ID token on every request")
	f.Bool("event-extraction", true, "Suggest calendar events found in opened messages")
	f.Bool("metrics", true, "Serve Prometheus metrics")
	f.String("metrics-addr", ":9090", "Listen address of the metrics server")
	addLLMFlags(f)

	return cmd
}

func runServe(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(os.Stderr, cfg.Debug)
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	var metrics *instrumentation.Metrics
	var audit *instrumentation.AuditLogger
	if provider.Enabled() {
		metrics = provider.Metrics()
		audit = instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)
	}

	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && provider.Enabled() && provider.ServesPrometheus() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(startupTimeout):
			return errors.New("metrics server startup timed out")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	svc, store, err := newAssistant(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}

	serverContext, err := server.NewServerContext(ctx, server.Deps{
		Assistant: svc,
		Cache:     store,
		Metrics:   metrics,
		Audit:     audit,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	actions, err := newActionsHandler(ctx, cfg, serverContext)
	if err != nil {
		return err
	}

	health := server.NewHealthChecker(serverContext, version)
	addonServer, err := server.NewAddonServer(server.AddonServerConfig{
		Addr:         cfg.HTTP.Addr,
		BaseURL:      cfg.HTTP.BaseURL,
		TLSCertFile:  cfg.HTTP.TLSCertFile,
		TLSKeyFile:   cfg.HTTP.TLSKeyFile,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		Actions:      actions,
		Health:       health,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create add-on server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- addonServer.Start(nil)
	}()

	logger.Info("inboxdraft started",
		slog.String("version", version),
		slog.String("backend", svc.Backend()),
		slog.String("model", cfg.LLM.Model),
		slog.Bool("summary_cache", store != nil),
		slog.Bool("verify_id_token", cfg.Auth.VerifyIDToken))

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("add-on server stopped with error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	health.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := addonServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("add-on server shutdown failed: %w", err)
	}
	return <-serverErr
}

// newActionsHandler wires the add-on router, its handlers and the request
// middleware.
func newActionsHandler(ctx context.Context, cfg *config.Config, sc *server.ServerContext) (http.Handler, error) {
	urls := cards.ActionURLs{Base: publicBaseURL(cfg)}

	router := addon.NewRouter(addon.RouterOptions{
		URLs:    urls,
		Logger:  sc.Logger(),
		Metrics: sc.Metrics(),
		Audit:   sc.AuditLogger(),
	})
	addon.NewHandlers(addon.HandlerOptions{
		URLs:            urls,
		Assistant:       sc.Assistant(),
		Collaborators:   &addon.GoogleCollaborators{Metrics: sc.Metrics()},
		EventExtraction: cfg.Features.EventExtraction,
		Logger:          sc.Logger(),
	}).Register(router)

	var verify addon.Middleware
	if cfg.Auth.VerifyIDToken {
		validator, err := idtoken.NewValidator(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create ID token validator: %w", err)
		}
		verify = addon.VerifyIDToken(addon.IDTokenOptions{
			Validator: validator,
			Audience:  cfg.HTTP.BaseURL,
			Email:     cfg.Auth.ServiceAccountEmail,
			Logger:    sc.Logger(),
		})
	}

	limiter := addon.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.TrustProxy, sc.Metrics())
	return addon.Chain(router,
		addon.RequestID(),
		addon.Instrument(sc.Metrics()),
		addon.RateLimit(limiter),
		verify,
	), nil
}

// publicBaseURL is the base of the action URLs embedded in cards. Without a
// configured base URL it points at the local listener.
func publicBaseURL(cfg *config.Config) string {
	if cfg.HTTP.BaseURL != "" {
		return cfg.HTTP.BaseURL
	}
	host, port, err := net.SplitHostPort(cfg.HTTP.Addr)
	if err != nil {
		return "http://" + cfg.HTTP.Addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
