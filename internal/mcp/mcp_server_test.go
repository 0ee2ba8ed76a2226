package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/ragdelta/internal/contract"
	mcp_internal "github.com/huangsam/ragdelta/internal/mcp"
	"github.com/huangsam/ragdelta/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeReport writes a CSV report where item i passes passes[i] of 4 runs.
func writeReport(t *testing.T, root, model, stratum, condition string, passes []int) {
	t.Helper()
	dir := filepath.Join(root, model, stratum)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	var b strings.Builder
	b.WriteString("item_path,status\n")
	for i, p := range passes {
		for r := range 4 {
			status := "failed"
			if r < p {
				status = "passed"
			}
			fmt.Fprintf(&b, "suite.case.item_%02d,%s\n", i, status)
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, condition+".csv"), []byte(b.String()), 0o644))
}

func baseConfig(dir string) *contract.Config {
	return &contract.Config{
		ReportsDir: dir,
		Pattern:    contract.DefaultPattern,
		Baseline:   contract.DefaultBaseline,
		Treatment:  contract.DefaultTreatment,
		Alpha:      contract.DefaultAlpha,
		Bootstrap:  100,
		Workers:    2,
		Precision:  contract.DefaultPrecision,
		Output:     schema.JSONOut,
		Columns: contract.ColumnConfig{
			ItemPath:  contract.DefaultItemPathColumn,
			Status:    contract.DefaultStatusColumn,
			Exemption: contract.DefaultExemptionColumn,
		},
	}
}

func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	require.NotNil(t, res)
	return res
}

func resultText(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestMCPServerCompareConditions(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "gpt", "dense", "baseline", []int{0, 1, 1, 0, 2, 1, 0, 1})
	writeReport(t, dir, "gpt", "dense", "rag", []int{3, 4, 3, 2, 4, 4, 2, 3})
	writeReport(t, dir, "llama", "dense", "baseline", []int{1, 2, 3, 4})
	writeReport(t, dir, "llama", "dense", "rag", []int{1, 2, 3, 4})

	s := mcp_internal.NewMCPServer(baseConfig(dir), nil)

	res := callTool(t, s, "compare_conditions", map[string]any{"seed": 7.0})
	require.False(t, res.IsError, resultText(res))

	var doc schema.ReportDocument
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &doc))
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, "gpt", doc.Rows[0].Model)
	assert.Equal(t, 8, doc.Rows[0].Improved)
	assert.Equal(t, "llama", doc.Rows[1].Model)
	assert.Nil(t, doc.Rows[1].PRaw)
	assert.Equal(t, 2, doc.Summary.Comparisons)

	// Filters narrow the groups
	res = callTool(t, s, "compare_conditions", map[string]any{"models": "llama", "seed": 7.0})
	require.False(t, res.IsError, resultText(res))
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &doc))
	require.Len(t, doc.Rows, 1)
	assert.Equal(t, "llama", doc.Rows[0].Model)
}

func TestMCPServerCompareConditionsValidationErrors(t *testing.T) {
	dir := t.TempDir()
	s := mcp_internal.NewMCPServer(baseConfig(dir), nil)

	tests := []struct {
		name     string
		args     map[string]any
		expected string
	}{
		{name: "alpha out of range", args: map[string]any{"alpha": 2.0}, expected: "alpha must be between 0 and 1"},
		{name: "same conditions", args: map[string]any{"baseline": "rag"}, expected: "must be different"},
		{name: "missing reports dir", args: map[string]any{"reports_dir": filepath.Join(dir, "nope")}, expected: "not accessible"},
		{name: "bad pattern", args: map[string]any{"pattern": "{model}/{condition}.csv"}, expected: "{stratum} exactly once"},
		{name: "fractional seed", args: map[string]any{"seed": 1.5}, expected: "seed must be a non-negative integer"},
		{name: "no groups", args: map[string]any{}, expected: "comparison failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, s, "compare_conditions", tt.args)
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, resultText(res), tt.expected)
		})
	}
}

func TestMCPServerCliffsDelta(t *testing.T) {
	s := mcp_internal.NewMCPServer(baseConfig(t.TempDir()), nil)

	res := callTool(t, s, "cliffs_delta", map[string]any{
		"baseline":  []any{1.0, 2.0, 3.0},
		"treatment": []any{4.0, 5.0, 6.0},
	})
	require.False(t, res.IsError, resultText(res))

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &out))
	assert.Equal(t, -1.0, out["cliffs_delta"])
	assert.Equal(t, "Large", out["magnitude"])
	assert.Equal(t, 3.0, out["n_baseline"])
	assert.NotContains(t, out, "ci_low")

	// Unequal lengths are fine without a bootstrap
	res = callTool(t, s, "cliffs_delta", map[string]any{
		"baseline":  []any{1.0, 2.0},
		"treatment": []any{1.0, 2.0, 3.0},
	})
	require.False(t, res.IsError, resultText(res))
}

func TestMCPServerCliffsDeltaBootstrap(t *testing.T) {
	s := mcp_internal.NewMCPServer(baseConfig(t.TempDir()), nil)
	args := map[string]any{
		"baseline":  []any{0.1, 0.2, 0.3, 0.4, 0.5},
		"treatment": []any{0.2, 0.4, 0.3, 0.8, 0.9},
		"bootstrap": 200.0,
		"seed":      11.0,
	}

	first := resultText(callTool(t, s, "cliffs_delta", args))
	second := resultText(callTool(t, s, "cliffs_delta", args))
	assert.Equal(t, first, second, "a seeded bootstrap should be reproducible")

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(first), &out))
	low, ok := out["ci_low"].(float64)
	require.True(t, ok)
	high, ok := out["ci_high"].(float64)
	require.True(t, ok)
	assert.LessOrEqual(t, low, high)
}

func TestMCPServerCliffsDeltaErrors(t *testing.T) {
	s := mcp_internal.NewMCPServer(baseConfig(t.TempDir()), nil)

	res := callTool(t, s, "cliffs_delta", map[string]any{"baseline": []any{}, "treatment": []any{1.0}})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "non-empty")

	res = callTool(t, s, "cliffs_delta", map[string]any{
		"baseline":  []any{1.0, 2.0},
		"treatment": []any{1.0},
		"bootstrap": 10.0,
	})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "equal length")
}
