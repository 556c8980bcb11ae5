package assistant_tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxdraft/internal/assistant"
	"github.com/teemow/inboxdraft/internal/server"
	"github.com/teemow/inboxdraft/internal/tools/common"
)

// Tool names.
const (
	ToolDraftReply     = "draft_reply"
	ToolComposeEmail   = "compose_email"
	ToolSummarizeEmail = "summarize_email"
	ToolExtractEvent   = "extract_event"
	ToolReplyTemplate  = "get_reply_template"
)

// RegisterAssistantTools registers the assistant tools with the MCP server.
func RegisterAssistantTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc == nil || sc.Assistant() == nil {
		return errors.New("server context with an assistant is required")
	}

	draftReplyTool := mcp.NewTool(ToolDraftReply,
		mcp.WithDescription("Draft a polite reply to an email. Returns the reply body only."),
		mcp.WithString("email_text",
			mcp.Required(),
			mcp.Description("Plain text of the email to reply to"),
		),
	)
	s.AddTool(draftReplyTool, common.InstrumentedToolHandler(ToolDraftReply, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDraftReply(ctx, request, sc)
		}))

	composeTool := mcp.NewTool(ToolComposeEmail,
		mcp.WithDescription("Write a new email from a short description of what it should say"),
		mcp.WithString("user_input",
			mcp.Required(),
			mcp.Description("What the email should say, e.g. 'ask Bob to move our 1:1 to Thursday'"),
		),
		mcp.WithString("recipient",
			mcp.Description("Optional recipient name or address used in the greeting"),
		),
		mcp.WithString("subject",
			mcp.Description("Optional subject the body should fit"),
		),
	)
	s.AddTool(composeTool, common.InstrumentedToolHandler(ToolComposeEmail, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleComposeEmail(ctx, request, sc)
		}))

	summarizeTool := mcp.NewTool(ToolSummarizeEmail,
		mcp.WithDescription("Summarize an email in a few sentences"),
		mcp.WithString("email_text",
			mcp.Required(),
			mcp.Description("Plain text of the email to summarize"),
		),
		mcp.WithString("account",
			mcp.Description("Mailbox owner. With message_id it enables the summary cache."),
		),
		mcp.WithString("message_id",
			mcp.Description("Gmail message id. With account it enables the summary cache."),
		),
		mcp.WithBoolean("refresh",
			mcp.Description("Ignore a cached summary and generate a new one (default: false)"),
		),
	)
	s.AddTool(summarizeTool, common.InstrumentedToolHandler(ToolSummarizeEmail, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSummarizeEmail(ctx, request, sc)
		}))

	extractTool := mcp.NewTool(ToolExtractEvent,
		mcp.WithDescription("Find a meeting or appointment in an email and return its title and time"),
		mcp.WithString("email_text",
			mcp.Required(),
			mcp.Description("Plain text of the email"),
		),
		mcp.WithString("time_zone",
			mcp.Description("IANA time zone used for times without an offset, e.g. 'Europe/Berlin' (default: UTC)"),
		),
	)
	s.AddTool(extractTool, common.InstrumentedToolHandler(ToolExtractEvent, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleExtractEvent(ctx, request, sc)
		}))

	templateTool := mcp.NewTool(ToolReplyTemplate,
		mcp.WithDescription("Return the reply template inserted by the add-on's template button"),
	)
	s.AddTool(templateTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(sc.Assistant().Template()), nil
	})

	return nil
}

func handleDraftReply(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	text := common.StringArg(request.GetArguments(), "email_text")
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("email_text is required"), nil
	}

	reply, err := sc.Assistant().DraftReply(ctx, text)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to draft reply: %v", err)), nil
	}
	return mcp.NewToolResultText(reply), nil
}

func handleComposeEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	body, err := sc.Assistant().ComposeEmail(ctx, assistant.ComposeInput{
		UserInput: common.StringArg(args, "user_input"),
		Recipient: common.StringArg(args, "recipient"),
		Subject:   common.StringArg(args, "subject"),
	})
	if errors.Is(err, assistant.ErrEmptyInput) {
		return mcp.NewToolResultError("user_input is required"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to compose email: %v", err)), nil
	}
	return mcp.NewToolResultText(body), nil
}

func handleSummarizeEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	text := common.StringArg(args, "email_text")
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("email_text is required"), nil
	}

	summary, err := sc.Assistant().Summarize(ctx, assistant.SummaryRequest{
		Account:   common.GetAccountFromArgs(args),
		MessageID: common.StringArg(args, "message_id"),
		Text:      text,
		Refresh:   common.BoolArg(args, "refresh"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to summarize email: %v", err)), nil
	}
	return mcp.NewToolResultText(summary), nil
}

func handleExtractEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	text := common.StringArg(args, "email_text")
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("email_text is required"), nil
	}

	loc := time.UTC
	if tz := common.StringArg(args, "time_zone"); tz != "" {
		var err error
		if loc, err = time.LoadLocation(tz); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Unknown time zone %q", tz)), nil
		}
	}

	event, err := sc.Assistant().ExtractEvent(ctx, text, loc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to extract event: %v", err)), nil
	}
	if !event.Found {
		return mcp.NewToolResultText("No calendar event found."), nil
	}

	result := fmt.Sprintf("Title: %s\n", event.Title)
	result += fmt.Sprintf("Start: %s\n", event.Start.Format(time.RFC3339))
	result += fmt.Sprintf("End: %s\n", event.End.Format(time.RFC3339))
	return mcp.NewToolResultText(result), nil
}
