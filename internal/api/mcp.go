package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/cpgagent/internal/sales"
	"github.com/kalambet/cpgagent/internal/tools"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Exec    *Executor
	Runs    RunStore // optional; if nil, runs://recent is not registered
	Version string
}

const mcpInstructions = "cpgagent: sales analytics over a CPG retail dataset. " +
	"Use the trend tools for category, store and seasonal views, the anomaly tools to find spikes, " +
	"stock shortages and failed promotions, and the simulate tools for price and promotion what-ifs. " +
	"Read dataset://summary first to learn the available stores, SKUs and categories."

// NewMCPServer creates an MCP server with one tool per catalog operation.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"cpgagent",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions(mcpInstructions),
		server.WithRecovery(),
	)

	// Tools
	for _, e := range tools.Catalog() {
		s.AddTool(mcpToolFor(e), mcpRunTool(deps, e.Kind))
	}

	// Resources
	s.AddResource(
		mcp.NewResource(
			"dataset://summary",
			"Dataset Summary",
			mcp.WithResourceDescription("Record count, stores, SKUs, categories and date range of the loaded sales data"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceDataset(deps),
	)

	if deps.Runs != nil {
		s.AddResource(
			mcp.NewResource(
				"runs://recent",
				"Recent Runs",
				mcp.WithResourceDescription("Last 10 tool runs (arguments and status only)"),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceRecent(deps),
		)
	}

	return s
}

func mcpToolFor(e tools.Entry) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(e.Description)}
	for _, p := range e.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}
		if len(p.Enum) > 0 {
			props = append(props, mcp.Enum(p.Enum...))
		}
		switch p.Type {
		case "string":
			opts = append(opts, mcp.WithString(p.Name, props...))
		default:
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		}
	}
	return mcp.NewTool(string(e.Kind), opts...)
}

func mcpRunTool(deps MCPDeps, kind tools.Kind) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcpError(fmt.Sprintf("failed to encode arguments: %v", err)), nil
		}

		call, err := tools.Decode(kind, raw)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		res, err := deps.Exec.Execute(call)
		if errors.Is(err, sales.ErrInvalidParameter) {
			return mcpError(err.Error()), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("%s failed: %v", kind, err)), nil
		}

		b, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceDataset(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(sales.Summarize(deps.Exec.Runner().Table()))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal summary: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		runs, err := deps.Runs.ListRuns(10, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent runs: %w", err)
		}

		type runSummary struct {
			ID        string          `json:"id"`
			CreatedAt string          `json:"created_at"`
			Tool      string          `json:"tool"`
			Args      json.RawMessage `json:"args"`
			Status    string          `json:"status"`
		}

		summaries := make([]runSummary, len(runs))
		for i, r := range runs {
			summaries[i] = runSummary{
				ID:        r.ID,
				CreatedAt: r.CreatedAt.Format(time.RFC3339),
				Tool:      r.Tool,
				Args:      rawJSON(r.ArgsJSON),
				Status:    r.Status,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal runs: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
