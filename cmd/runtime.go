package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"
	"golang.org/x/oauth2"

	"github.com/teemow/inboxdraft/internal/assistant"
	"github.com/teemow/inboxdraft/internal/cache"
	"github.com/teemow/inboxdraft/internal/config"
	"github.com/teemow/inboxdraft/internal/google"
	"github.com/teemow/inboxdraft/internal/instrumentation"
	"github.com/teemow/inboxdraft/internal/llm"
	"github.com/teemow/inboxdraft/internal/logging"
)

// addLLMFlags registers the model flags shared by serve, mcp and try.
func addLLMFlags(f *pflag.FlagSet) {
	f.String("llm-backend", config.BackendVertex, "Model backend: vertex, genai or bedrock")
	f.String("project", "", "Google Cloud project for Vertex AI")
	f.String("location", "us-central1", "Vertex AI location")
	f.String("model", "gemini-2.5-flash", "Model name")
	f.String("region", "us-east-1", "AWS region for the bedrock backend")
	f.Duration("llm-timeout", 0, "Timeout per model request (default from config: 60s)")
	f.String("prompts-file", "", "YAML file overriding the built-in prompts")
	f.String("cache-path", "", "SQLite file for cached summaries (empty disables the cache)")
	f.Bool("debug", false, "Enable debug logging")
}

// newLogger returns a JSON logger, or a text logger in debug mode.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	if debug {
		return logging.New(w, logging.FormatText, true)
	}
	return logging.New(w, logging.FormatJSON, false)
}

// loadPrompts returns the built-in prompts or the ones in path.
func loadPrompts(path string) (assistant.Prompts, error) {
	if path == "" {
		return assistant.DefaultPrompts(), nil
	}
	prompts, err := assistant.LoadPrompts(path)
	if err != nil {
		return assistant.Prompts{}, fmt.Errorf("failed to load prompts: %w", err)
	}
	return prompts, nil
}

// newAssistant builds the model client, the optional summary cache and the
// assistant service on top of them. The caller closes the returned store.
func newAssistant(ctx context.Context, cfg *config.Config, metrics *instrumentation.Metrics, logger *slog.Logger) (*assistant.Service, *cache.Store, error) {
	var tokens oauth2.TokenSource
	if cfg.LLM.Backend == config.BackendVertex {
		ts, err := google.DefaultTokenSource(ctx, google.ScopeCloudPlatform)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get application default credentials: %w", err)
		}
		tokens = ts
	}

	gen, err := llm.New(ctx, cfg.LLM, llm.Deps{Tokens: tokens, Metrics: metrics, Logger: logger})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s client: %w", cfg.LLM.Backend, err)
	}

	prompts, err := loadPrompts(cfg.PromptsFile)
	if err != nil {
		return nil, nil, err
	}

	opts := assistant.Options{
		Prompts:     &prompts,
		Metrics:     metrics,
		Logger:      logger,
		Temperature: llm.Float32(cfg.LLM.Temperature),
	}

	var store *cache.Store
	if cfg.Cache.Path != "" {
		store, err = cache.Open(ctx, cfg.Cache.Path, cfg.Cache.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open summary cache: %w", err)
		}
		if n, err := store.Prune(ctx, cfg.Cache.TTL); err != nil {
			logger.Warn("summary cache prune failed", logging.Err(err))
		} else if n > 0 {
			logger.Info("pruned expired summaries", slog.Int64("count", n))
		}
		opts.Cache = store
	}

	return assistant.New(gen, opts), store, nil
}
