package cmd

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxdraft/internal/assistant"
	"github.com/teemow/inboxdraft/internal/llm"
	"github.com/teemow/inboxdraft/internal/server"
	"github.com/teemow/inboxdraft/internal/tools/assistant_tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for the tools served by "inboxdraft mcp".
The tools are registered against an offline model and introspected, so no
credentials are needed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// offlineGenerator stands in for the model while tools are only listed.
type offlineGenerator struct{}

func (offlineGenerator) Name() string { return "offline" }

func (offlineGenerator) Generate(context.Context, *llm.Request) (*llm.Result, error) {
	return nil, errors.New("no model is configured while generating docs")
}

func runGenerateDocs(outputFile string) error {
	serverContext, err := server.NewServerContext(context.Background(), server.Deps{
		Assistant: assistant.New(offlineGenerator{}, assistant.Options{}),
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := newMCPServer()
	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}

	markdown := generateToolsMarkdown(tools)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	byCategory := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		c := toolCategory(tool.Name)
		byCategory[c] = append(byCategory[c], tool)
	}
	categories := slices.Sorted(maps.Keys(byCategory))

	var b strings.Builder
	b.WriteString("# MCP Tools Reference\n\n")
	b.WriteString("This document lists the tools served by `inboxdraft mcp`. It is generated from the tool definitions.\n\n")

	b.WriteString("## Table of Contents\n\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "- [%s](#%s)\n", c, strings.ToLower(strings.ReplaceAll(c, " ", "-")))
	}

	b.WriteString("\n## Summary Cache\n\n")
	b.WriteString("`summarize_email` caches summaries when both `account` and `message_id` are given ")
	b.WriteString("and the server runs with a cache path. Pass `refresh=true` to regenerate.\n\n")

	for _, c := range categories {
		group := byCategory[c]
		slices.SortFunc(group, func(x, y mcp.Tool) int { return strings.Compare(x.Name, y.Name) })

		fmt.Fprintf(&b, "## %s\n\n", c)
		for _, tool := range group {
			writeToolMarkdown(&b, tool)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func toolCategory(name string) string {
	switch name {
	case assistant_tools.ToolDraftReply, assistant_tools.ToolComposeEmail, assistant_tools.ToolReplyTemplate:
		return "Writing Tools"
	case assistant_tools.ToolSummarizeEmail, assistant_tools.ToolExtractEvent:
		return "Reading Tools"
	default:
		return "Other"
	}
}

func writeToolMarkdown(b *strings.Builder, tool mcp.Tool) {
	fmt.Fprintf(b, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(b, "%s\n\n", tool.Description)
	}

	props := tool.InputSchema.Properties
	if len(props) == 0 {
		return
	}

	b.WriteString("**Arguments:**\n")
	for _, name := range slices.Sorted(maps.Keys(props)) {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		presence := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			presence = "required"
		}

		desc, _ := prop["description"].(string)
		if desc == "" {
			typ, _ := prop["type"].(string)
			if typ == "" {
				typ = "any"
			}
			desc = typ + " parameter"
		}
		fmt.Fprintf(b, "- `%s` (%s): %s\n", name, presence, desc)
	}
	b.WriteString("\n")
}
