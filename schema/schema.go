// Package schema has models and enums shared by all parts of ragdelta.
package schema

import (
	"fmt"
	"strings"
)

// TestCaseResult is one raw row of a test report.
type TestCaseResult struct {
	ItemPath  string     // Dotted identifier of the test case, e.g. "suite.module.item_42"
	Status    TestStatus // Outcome of the test case
	Exemption *string    // Non-nil when the row carries an exemption marker
}

// ItemID returns the last dotted segment of the item path.
func (r TestCaseResult) ItemID() string {
	if i := strings.LastIndex(r.ItemPath, "."); i >= 0 {
		return r.ItemPath[i+1:]
	}
	return r.ItemPath
}

// ItemPassRate aggregates the non-exempt outcomes of one test item.
type ItemPassRate struct {
	ItemID   string  `json:"item_id"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Total    int     `json:"total"`
	PassRate float64 `json:"pass_rate"`
}

// PairedItemRecord holds the pass rates of one item observed under both conditions.
type PairedItemRecord struct {
	ItemID    string
	Baseline  float64
	Treatment float64
}

// GroupKey identifies one comparison unit.
type GroupKey struct {
	Model   string
	Stratum string
}

// String returns a compact representation used in logs.
func (k GroupKey) String() string {
	return fmt.Sprintf("%s/%s", k.Model, k.Stratum)
}

// ComparisonResult is the statistical comparison of one group.
// PFDR stays nil until the stratum's correction has run.
type ComparisonResult struct {
	Group             GroupKey
	N                 int       // Number of paired items
	WilcoxonStatistic float64   // min(W+, W-); NaN when all differences are zero
	PRaw              float64   // Wilcoxon two-sided p-value; NaN when degenerate
	PFDR              *float64  // Benjamini-Hochberg adjusted p-value
	RejectFDR         bool      // Null rejected at the configured FDR level
	CliffsDelta       float64   // Baseline vs treatment, in [-1, 1]
	Magnitude         Magnitude // Qualitative size of CliffsDelta
	CILow             float64   // Bootstrap 2.5th percentile of CliffsDelta
	CIHigh            float64   // Bootstrap 97.5th percentile of CliffsDelta
	MeanDiff          float64   // Mean of treatment - baseline
	MedianDiff        float64   // Median of treatment - baseline
	MeanDiffPct       float64   // MeanDiff in percentage points
	Improved          int       // Items with a positive difference
	Worsened          int       // Items with a negative difference
	Unchanged         int       // Items with a zero difference
	Skewness          float64   // Population skewness of the differences
	SignTestP         float64   // Exact two-sided sign test p-value
	EffectSize        float64   // |MeanDiff| / population std of the differences
	Power             float64   // Paired t-test power at the configured alpha
}

// ReportRow is one line of the final comparison table.
type ReportRow struct {
	Model       string
	Stratum     string
	N           int
	MeanDiff    float64
	MeanDiffPct float64
	MedianDiff  float64
	PRaw        float64
	PFDR        float64
	RejectFDR   bool
	CliffsDelta float64
	Magnitude   Magnitude
	CILow       float64
	CIHigh      float64
	Improved    int
	Worsened    int
	Unchanged   int
	Skewness    float64
	SignTestP   float64
	EffectSize  float64
	Power       float64
}

// StratumSummary counts the significant comparisons inside one stratum.
type StratumSummary struct {
	Stratum        string `json:"stratum"`
	Comparisons    int    `json:"comparisons"`
	SignificantRaw int    `json:"significant_raw"`
	SignificantFDR int    `json:"significant_fdr"`
}

// Summary holds the cross-stratum reductions of the final table.
type Summary struct {
	Comparisons     int     `json:"comparisons"`
	SignificantRaw  int     `json:"significant_raw"`
	SignificantFDR  int     `json:"significant_fdr"`
	MeanImprovement float64 `json:"mean_improvement_pct"`
	Improved        int     `json:"improved"`
	Worsened        int     `json:"worsened"`
	Unchanged       int     `json:"unchanged"`
}

// ComparisonReport bundles everything a run produces.
type ComparisonReport struct {
	Rows    []ReportRow      `json:"-"`
	Strata  []StratumSummary `json:"strata"`
	Summary Summary          `json:"summary"`
	Skipped []SkippedGroup   `json:"skipped,omitempty"`
}

// SkippedGroup records a group that did not make it into the table.
type SkippedGroup struct {
	Model   string `json:"model"`
	Stratum string `json:"stratum"`
	Reason  string `json:"reason"`
}
