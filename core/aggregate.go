package core

import (
	"math"

	"github.com/huangsam/ragdelta/internal/contract"
	"github.com/huangsam/ragdelta/schema"
	"github.com/rotisserie/eris"
)

// ErrUncorrected is returned when a result reaches the aggregator before its
// stratum was corrected.
var ErrUncorrected = eris.New("result has no FDR-adjusted p-value")

// Aggregator collects corrected results into one flat table and derives the
// summaries printed at the end of a run.
type Aggregator struct {
	labels contract.LabelConfig
	alpha  float64
	rows   []schema.ReportRow
	strata []schema.StratumSummary
}

// NewAggregator returns an empty aggregator that labels rows with labels and
// counts significance at alpha.
func NewAggregator(labels contract.LabelConfig, alpha float64) *Aggregator {
	return &Aggregator{labels: labels, alpha: alpha}
}

// Add appends the corrected results of one stratum. Every result must carry a
// PFDR, otherwise nothing is added.
func (a *Aggregator) Add(stratum string, results []*schema.ComparisonResult) error {
	for _, r := range results {
		if r.PFDR == nil {
			return eris.Wrapf(ErrUncorrected, "group %s", r.Group)
		}
	}

	summary := schema.StratumSummary{Stratum: a.labels.StratumLabel(stratum)}
	for _, r := range results {
		row := a.toRow(r)
		a.rows = append(a.rows, row)
		summary.Comparisons++
		if row.PRaw < a.alpha {
			summary.SignificantRaw++
		}
		if row.PFDR < a.alpha {
			summary.SignificantFDR++
		}
	}
	a.strata = append(a.strata, summary)
	return nil
}

// toRow flattens a result into a table row with display labels.
func (a *Aggregator) toRow(r *schema.ComparisonResult) schema.ReportRow {
	return schema.ReportRow{
		Model:       a.labels.ModelLabel(r.Group.Model),
		Stratum:     a.labels.StratumLabel(r.Group.Stratum),
		N:           r.N,
		MeanDiff:    r.MeanDiff,
		MeanDiffPct: r.MeanDiffPct,
		MedianDiff:  r.MedianDiff,
		PRaw:        r.PRaw,
		PFDR:        *r.PFDR,
		RejectFDR:   r.RejectFDR,
		CliffsDelta: r.CliffsDelta,
		Magnitude:   r.Magnitude,
		CILow:       r.CILow,
		CIHigh:      r.CIHigh,
		Improved:    r.Improved,
		Worsened:    r.Worsened,
		Unchanged:   r.Unchanged,
		Skewness:    r.Skewness,
		SignTestP:   r.SignTestP,
		EffectSize:  r.EffectSize,
		Power:       r.Power,
	}
}

// Rows returns a copy of the table in insertion order.
func (a *Aggregator) Rows() []schema.ReportRow {
	out := make([]schema.ReportRow, len(a.rows))
	copy(out, a.rows)
	return out
}

// StratumSummaries returns the per-stratum significance counts in insertion order.
func (a *Aggregator) StratumSummaries() []schema.StratumSummary {
	out := make([]schema.StratumSummary, len(a.strata))
	copy(out, a.strata)
	return out
}

// Summary reduces the whole table. NaN p-values are never significant and
// the mean improvement of an empty table is 0.
func (a *Aggregator) Summary() schema.Summary {
	var s schema.Summary
	var pctSum float64
	var pctCount int
	for _, r := range a.rows {
		s.Comparisons++
		if r.PRaw < a.alpha {
			s.SignificantRaw++
		}
		if r.PFDR < a.alpha {
			s.SignificantFDR++
		}
		if !math.IsNaN(r.MeanDiffPct) {
			pctSum += r.MeanDiffPct
			pctCount++
		}
		s.Improved += r.Improved
		s.Worsened += r.Worsened
		s.Unchanged += r.Unchanged
	}
	if pctCount > 0 {
		s.MeanImprovement = pctSum / float64(pctCount)
	}
	return s
}

// Report bundles the table, the summaries and the skipped groups.
func (a *Aggregator) Report(skipped []schema.SkippedGroup) *schema.ComparisonReport {
	return &schema.ComparisonReport{
		Rows:    a.Rows(),
		Strata:  a.StratumSummaries(),
		Summary: a.Summary(),
		Skipped: skipped,
	}
}
