package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/huangsam/ragdelta/core"
	"github.com/huangsam/ragdelta/core/algo"
	"github.com/huangsam/ragdelta/internal/contract"
	"github.com/huangsam/ragdelta/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rotisserie/eris"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.HistoryManager
}

// cliffsDeltaResult is the JSON answer of the cliffs_delta tool.
type cliffsDeltaResult struct {
	CliffsDelta *float64         `json:"cliffs_delta"`
	Magnitude   schema.Magnitude `json:"magnitude"`
	NBaseline   int              `json:"n_baseline"`
	NTreatment  int              `json:"n_treatment"`
	CILow       *float64         `json:"ci_low,omitempty"`
	CIHigh      *float64         `json:"ci_high,omitempty"`
}

func (h *toolHandler) handleCompareConditions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if d := request.GetString("reports_dir", ""); d != "" {
		cfg.ReportsDir = d
	}
	if p := request.GetString("pattern", ""); p != "" {
		cfg.Pattern = p
	}
	if b := request.GetString("baseline", ""); b != "" {
		cfg.Baseline = b
	}
	if tr := request.GetString("treatment", ""); tr != "" {
		cfg.Treatment = tr
	}
	if m := request.GetString("models", ""); m != "" {
		cfg.Models = contract.ParseList(m)
	}
	if s := request.GetString("strata", ""); s != "" {
		cfg.Strata = contract.ParseList(s)
	}
	if a := request.GetFloat("alpha", 0); a != 0 {
		cfg.Alpha = a
	}
	if b := request.GetInt("bootstrap", 0); b != 0 {
		cfg.Bootstrap = b
	}
	seed, err := seedArgument(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid comparison parameters: %v", err)), nil
	}
	if seed != nil {
		cfg.Seed = seed
	}

	if err := contract.RevalidateCompare(cfg); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid comparison parameters: %v", err)), nil
	}

	rep, err := core.GetComparisonReport(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("comparison failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(schema.NewReportDocument(*rep), "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleCliffsDelta(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	x := request.GetFloatSlice("baseline", nil)
	y := request.GetFloatSlice("treatment", nil)
	if len(x) == 0 || len(y) == 0 {
		return mcp.NewToolResultError("baseline and treatment must both be non-empty numeric arrays"), nil
	}

	delta := algo.CliffsDelta(x, y)
	result := cliffsDeltaResult{
		CliffsDelta: schema.FiniteOrNil(delta),
		Magnitude:   algo.ClassifyMagnitude(delta),
		NBaseline:   len(x),
		NTreatment:  len(y),
	}

	if iterations := request.GetInt("bootstrap", 0); iterations > 0 {
		if len(x) != len(y) {
			return mcp.NewToolResultError(fmt.Sprintf("bootstrap needs paired samples of equal length (received %d and %d)", len(x), len(y))), nil
		}
		if iterations > contract.MaxBootstrap {
			return mcp.NewToolResultError(fmt.Sprintf("bootstrap must be at most %d", contract.MaxBootstrap)), nil
		}
		seed, err := seedArgument(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		rs := algo.NewRandomResampler()
		if seed != nil {
			rs = algo.NewSeededResampler(*seed, 0)
		}
		low, high, err := algo.BootstrapCliffsDelta(x, y, iterations, rs)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("bootstrap failed: %v", err)), nil
		}
		result.CILow, result.CIHigh = schema.FiniteOrNil(low), schema.FiniteOrNil(high)
	}

	jsonData, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

// seedArgument reads the optional seed. JSON numbers arrive as floats, so
// only whole non-negative values are accepted.
func seedArgument(request mcp.CallToolRequest) (*uint64, error) {
	v := request.GetFloat("seed", -1)
	if v == -1 {
		return nil, nil
	}
	if v < 0 || v != math.Trunc(v) || v >= math.MaxUint64 {
		return nil, eris.Errorf("seed must be a non-negative integer (received %v)", v)
	}
	seed := uint64(v)
	return &seed, nil
}
