package common

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxdraft/internal/instrumentation"
	"github.com/teemow/inboxdraft/internal/logging"
	"github.com/teemow/inboxdraft/internal/server"
)

// HostApp is recorded as the host of every tool invocation.
const HostApp = "mcp"

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with metrics and audit logging.
// Results flagged IsError count as failures.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()
		if metrics == nil && auditLogger == nil {
			return handler(ctx, request)
		}

		args := request.GetArguments()
		invocation := instrumentation.NewActionInvocation(toolName).
			WithRequest("", logging.AnonymizeEmail(GetAccountFromArgs(args)), HostApp).
			WithMessage(StringArg(args, "message_id")).
			WithSpanContext(ctx)

		result, err := handler(ctx, request)
		invocation.Complete(resultError(result, err))

		metrics.RecordActionInvocation(ctx, toolName, invocation.Status(), invocation.Duration)
		auditLogger.LogAction(invocation)
		return result, err
	}
}

// resultError folds a tool-level error result into an error value.
func resultError(result *mcp.CallToolResult, err error) error {
	if err != nil {
		return err
	}
	if result == nil || !result.IsError {
		return nil
	}
	for _, c := range result.Content {
		if text, ok := c.(mcp.TextContent); ok && text.Text != "" {
			return errors.New(text.Text)
		}
	}
	return errors.New("tool returned an error result")
}
