package schema

import "math"

// EnrichedReportRow is the JSON form of a ReportRow. Undefined statistics
// are encoded as null since JSON has no NaN.
type EnrichedReportRow struct {
	Rank        int       `json:"rank"`
	Model       string    `json:"model"`
	Stratum     string    `json:"stratum"`
	N           int       `json:"n"`
	MeanDiff    *float64  `json:"mean_diff"`
	MeanDiffPct *float64  `json:"mean_diff_pct"`
	MedianDiff  *float64  `json:"median_diff"`
	PRaw        *float64  `json:"p_raw"`
	PFDR        *float64  `json:"p_fdr"`
	RejectFDR   bool      `json:"reject_fdr"`
	CliffsDelta *float64  `json:"cliffs_delta"`
	Magnitude   Magnitude `json:"magnitude"`
	CILow       *float64  `json:"ci_low"`
	CIHigh      *float64  `json:"ci_high"`
	Improved    int       `json:"improved"`
	Worsened    int       `json:"worsened"`
	Unchanged   int       `json:"unchanged"`
	Skewness    *float64  `json:"skewness"`
	SignTestP   *float64  `json:"sign_test_p"`
	EffectSize  *float64  `json:"effect_size"`
	Power       *float64  `json:"power"`
}

// FiniteOrNil returns nil for NaN and infinite values.
func FiniteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// EnrichRows converts table rows to their JSON form, numbering them in order.
func EnrichRows(rows []ReportRow) []EnrichedReportRow {
	output := make([]EnrichedReportRow, len(rows))
	for i, r := range rows {
		output[i] = EnrichedReportRow{
			Rank:        i + 1,
			Model:       r.Model,
			Stratum:     r.Stratum,
			N:           r.N,
			MeanDiff:    FiniteOrNil(r.MeanDiff),
			MeanDiffPct: FiniteOrNil(r.MeanDiffPct),
			MedianDiff:  FiniteOrNil(r.MedianDiff),
			PRaw:        FiniteOrNil(r.PRaw),
			PFDR:        FiniteOrNil(r.PFDR),
			RejectFDR:   r.RejectFDR,
			CliffsDelta: FiniteOrNil(r.CliffsDelta),
			Magnitude:   r.Magnitude,
			CILow:       FiniteOrNil(r.CILow),
			CIHigh:      FiniteOrNil(r.CIHigh),
			Improved:    r.Improved,
			Worsened:    r.Worsened,
			Unchanged:   r.Unchanged,
			Skewness:    FiniteOrNil(r.Skewness),
			SignTestP:   FiniteOrNil(r.SignTestP),
			EffectSize:  FiniteOrNil(r.EffectSize),
			Power:       FiniteOrNil(r.Power),
		}
	}
	return output
}

// ReportDocument is the top-level JSON document for a comparison run.
type ReportDocument struct {
	Rows    []EnrichedReportRow `json:"rows"`
	Strata  []StratumSummary    `json:"strata"`
	Summary Summary             `json:"summary"`
	Skipped []SkippedGroup      `json:"skipped,omitempty"`
}

// NewReportDocument builds the JSON document for a report.
func NewReportDocument(report ComparisonReport) ReportDocument {
	strata := report.Strata
	if strata == nil {
		strata = []StratumSummary{}
	}
	return ReportDocument{
		Rows:    EnrichRows(report.Rows),
		Strata:  strata,
		Summary: report.Summary,
		Skipped: report.Skipped,
	}
}
