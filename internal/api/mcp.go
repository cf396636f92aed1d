package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/glowkit/internal/catalog"
	"github.com/kalambet/glowkit/internal/selection"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Catalog   *catalog.Store
	Selection *selection.Store
	// SessionID is the selection the MCP client reads and edits.
	SessionID string
}

// NewMCPServer creates an MCP server exposing the catalog and a selection.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"glowkit",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("glowkit: browse the beauty product catalog and manage the selected products used for routines."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_products",
			mcp.WithDescription("Filter the catalog by exact category and a case-insensitive keyword matched against name, brand and description."),
			mcp.WithString("category", mcp.Description("Exact category name; empty matches all")),
			mcp.WithString("query", mcp.Description("Keyword; empty matches all")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		),
		mcpSearchProducts(deps),
	)

	s.AddTool(
		mcp.NewTool("list_categories",
			mcp.WithDescription("List the product categories in catalog order."),
		),
		mcpListCategories(deps),
	)

	s.AddTool(
		mcp.NewTool("get_selection",
			mcp.WithDescription("Return the currently selected products."),
		),
		mcpGetSelection(deps),
	)

	s.AddTool(
		mcp.NewTool("toggle_product",
			mcp.WithDescription("Add a product to the selection, or remove it if already selected."),
			mcp.WithNumber("id", mcp.Description("Product id"), mcp.Required()),
		),
		mcpToggleProduct(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"catalog://products",
			"Product Catalog",
			mcp.WithResourceDescription("Every product in the catalog as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProducts(deps),
	)

	return s
}

func mcpSearchProducts(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		category := req.GetString("category", "")
		query := req.GetString("query", "")

		limit := req.GetInt("limit", defaultSearchLimit)
		if limit <= 0 {
			limit = defaultSearchLimit
		}
		if limit > maxSearchLimit {
			limit = maxSearchLimit
		}

		products := catalog.Filter(deps.Catalog.Products(), category, query)
		if len(products) > limit {
			products = products[:limit]
		}
		return mcpJSON(products)
	}
}

func mcpListCategories(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		categories := deps.Catalog.Categories()
		if categories == nil {
			categories = []string{}
		}
		return mcpJSON(categories)
	}
}

func mcpGetSelection(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		set := deps.Selection.Get(ctx, deps.SessionID)
		return mcpJSON(deps.Catalog.Lookup(set.IDs()))
	}
}

func mcpToggleProduct(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetInt("id", 0)
		if id == 0 {
			return mcpError("id is required"), nil
		}
		p, ok := deps.Catalog.Get(id)
		if !ok {
			return mcpError(fmt.Sprintf("product %d not found", id)), nil
		}

		_, selected, err := deps.Selection.Toggle(ctx, deps.SessionID, id)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to save selection: %v", err)), nil
		}
		if selected {
			return mcpText(fmt.Sprintf("Selected %s (%d)", p.Name, id)), nil
		}
		return mcpText(fmt.Sprintf("Deselected %s (%d)", p.Name, id)), nil
	}
}

func mcpResourceProducts(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		products := deps.Catalog.Products()
		if products == nil {
			products = []catalog.Product{}
		}
		b, err := json.Marshal(products)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal products: %w", err)
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

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcpText(string(b)), nil
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
