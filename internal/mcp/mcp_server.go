// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/ragdelta/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the ragdelta MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.HistoryManager) *server.MCPServer {
	s := server.NewMCPServer(
		"ragdelta Comparison Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: compare_conditions ---
	s.AddTool(mcp.NewTool("compare_conditions",
		mcp.WithDescription("Compare per-item pass rates of a baseline and a treatment condition for every (model, stratum) pair under a reports directory."),
		mcp.WithString("reports_dir", mcp.Description("Root directory of the reports (defaults to the server's configured directory).")),
		mcp.WithString("pattern", mcp.Description("Report path pattern with {model}, {stratum} and {condition} placeholders.")),
		mcp.WithString("baseline", mcp.Description("Baseline condition name. Defaults to 'baseline'.")),
		mcp.WithString("treatment", mcp.Description("Treatment condition name. Defaults to 'rag'.")),
		mcp.WithString("models", mcp.Description("Comma-separated models to include. Empty means all discovered models.")),
		mcp.WithString("strata", mcp.Description("Comma-separated strata to include. Empty means all discovered strata.")),
		mcp.WithNumber("alpha", mcp.Description("Significance level for the FDR correction.")),
		mcp.WithNumber("bootstrap", mcp.Description("Number of bootstrap resamples for the Cliff's delta interval.")),
		mcp.WithNumber("seed", mcp.Description("Bootstrap seed for reproducible intervals.")),
	), h.handleCompareConditions)

	// --- 2. Tool: cliffs_delta ---
	s.AddTool(mcp.NewTool("cliffs_delta",
		mcp.WithDescription("Compute Cliff's delta and its magnitude for two numeric samples. The samples are compared as independent: every baseline value against every treatment value. A positive delta means baseline values tend to be larger."),
		mcp.WithArray("baseline", mcp.Description("Baseline sample."), mcp.Required(), mcp.Items(map[string]any{"type": "number"})),
		mcp.WithArray("treatment", mcp.Description("Treatment sample."), mcp.Required(), mcp.Items(map[string]any{"type": "number"})),
		mcp.WithNumber("bootstrap", mcp.Description("Resamples for a paired 95% interval. Requires samples of equal length.")),
		mcp.WithNumber("seed", mcp.Description("Bootstrap seed for a reproducible interval.")),
	), h.handleCliffsDelta)

	return s
}

// StartMCPServer starts the ragdelta MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.HistoryManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
