package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxdraft/internal/config"
	"github.com/teemow/inboxdraft/internal/instrumentation"
	"github.com/teemow/inboxdraft/internal/logging"
	"github.com/teemow/inboxdraft/internal/resources"
	"github.com/teemow/inboxdraft/internal/server"
	"github.com/teemow/inboxdraft/internal/tools/assistant_tools"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the assistant as MCP tools over stdio",
		Long: `Start an MCP (Model Context Protocol) server on stdin/stdout.

The server exposes the assistant tasks of the add-on as tools:
draft_reply, compose_email, summarize_email, extract_event and
get_reply_template. Logs go to stderr so they never mix with the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runMCP(cmd.Context(), cfg, os.Stderr)
		},
	}

	addLLMFlags(cmd.Flags())
	return cmd
}

func runMCP(parent context.Context, cfg *config.Config, logOutput io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(logOutput, cfg.Debug)
	slog.SetDefault(logger)

	// Tool invocations are audited to stderr; there is no metrics listener
	// in stdio mode.
	instrConfig := instrumentation.DefaultConfig()
	audit := instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)

	svc, store, err := newAssistant(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}

	serverContext, err := server.NewServerContext(ctx, server.Deps{
		Assistant: svc,
		Cache:     store,
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

	mcpSrv := newMCPServer()
	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}
	return runStdioServer(mcpSrv)
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("inboxdraft", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
}

// registerAllTools registers all MCP tools and resources.
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Assistant Tools",
			register: func() error {
				return assistant_tools.RegisterAssistantTools(mcpSrv, sc)
			},
		},
		{
			name: "Server Resources",
			register: func() error {
				return resources.RegisterServerResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}
	return nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	if err := <-serverDone; err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}
