package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxdraft/internal/server"
)

// Resource URIs.
const (
	StatusURI   = "inboxdraft://status"
	TemplateURI = "inboxdraft://template"
)

// Status is the JSON body of the status resource.
type Status struct {
	Backend      string `json:"backend"`
	SummaryCache bool   `json:"summaryCache"`
	CacheTTL     string `json:"cacheTTL,omitempty"`
	CacheSchema  int    `json:"cacheSchema,omitempty"`
	ShuttingDown bool   `json:"shuttingDown"`
}

// RegisterServerResources registers the status and template resources.
func RegisterServerResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	statusResource := mcp.NewResource(
		StatusURI,
		"Assistant Status",
		mcp.WithResourceDescription("Model backend and summary cache of the running assistant"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(statusResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleStatus(ctx, request, sc)
	})

	templateResource := mcp.NewResource(
		TemplateURI,
		"Reply Template",
		mcp.WithResourceDescription("Text the add-on inserts into a draft from its template button"),
		mcp.WithMIMEType("text/plain"),
	)
	s.AddResource(templateResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			&mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "text/plain",
				Text:     sc.Assistant().Template(),
			},
		}, nil
	})

	return nil
}

func handleStatus(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	status := Status{
		Backend:      sc.Assistant().Backend(),
		ShuttingDown: sc.IsShutdown(),
	}
	if store := sc.Cache(); store != nil {
		status.SummaryCache = true
		status.CacheTTL = store.TTL().String()
		if !status.ShuttingDown {
			version, err := store.SchemaVersion(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to read cache schema version: %w", err)
			}
			status.CacheSchema = version
		}
	}

	jsonData, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
