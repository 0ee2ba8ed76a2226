package outwriter

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/ragdelta/internal/contract"
	"github.com/huangsam/ragdelta/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// writeComparisonTable writes the final table in a human-readable format.
func writeComparisonTable(writer io.Writer, rep *schema.ComparisonReport, cfg *contract.Config, fmtFloat func(float64) string, intFmt string) error {
	table := tablewriter.NewWriter(writer)

	// --- 1. Define Headers ---
	headers := []string{
		"Model",
		"Stratum",
		"N",
		"Δ Mean",
		"Δ %",
		"Δ Median",
		"p",
		"p (FDR)",
		"δ",
		"Size",
		"95% CI",
		"+/-/=",
		"Skew",
		"Sign p",
		"d",
		"Power",
	}
	table.Header(headers)

	// 2. Configure Alignment
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	// --- 3. Prepare Data Rows ---
	var green, red func(...any) string
	if cfg.UseColors {
		green = contract.SignificantMark.SprintFunc()
		red = color.New(color.FgRed).SprintFunc()
	} else {
		green = fmt.Sprint
		red = fmt.Sprint
	}
	labelWidth := getMaxTableLabelWidth(cfg)

	var data [][]string
	for _, r := range rep.Rows {
		pFDR := fmtFloat(r.PFDR)
		if r.RejectFDR {
			pFDR = green(pFDR + " *")
		}

		magnitude := string(r.Magnitude)
		if cfg.UseColors {
			magnitude = contract.GetColorMagnitude(r.Magnitude)
		}

		// Treatment gains are shown with an explicit sign
		var pctStr string
		switch {
		case math.IsNaN(r.MeanDiffPct):
			pctStr = fmtFloat(r.MeanDiffPct)
		case r.MeanDiffPct > 0:
			pctStr = green(fmt.Sprintf("+%s ▲", fmtFloat(r.MeanDiffPct)))
		case r.MeanDiffPct < 0:
			pctStr = red(fmt.Sprintf("%s ▼", fmtFloat(r.MeanDiffPct)))
		default:
			pctStr = fmtFloat(0)
		}

		row := []string{
			contract.TruncateLabel(r.Model, labelWidth),   // Model
			contract.TruncateLabel(r.Stratum, labelWidth), // Stratum
			fmt.Sprintf(intFmt, r.N),                      // Paired items
			fmtFloat(r.MeanDiff),                          // Mean difference
			pctStr,                                        // Mean difference in points
			fmtFloat(r.MedianDiff),                        // Median difference
			fmtFloat(r.PRaw),                              // Wilcoxon p
			pFDR,                                          // Adjusted p
			fmtFloat(r.CliffsDelta),                       // Cliff's delta
			magnitude,                                     // Magnitude
			fmt.Sprintf("[%s, %s]", fmtFloat(r.CILow), fmtFloat(r.CIHigh)),
			fmt.Sprintf(intFmt+"/"+intFmt+"/"+intFmt, r.Improved, r.Worsened, r.Unchanged),
			fmtFloat(r.Skewness),   // Skewness
			fmtFloat(r.SignTestP),  // Sign test p
			fmtFloat(r.EffectSize), // Cohen's d
			fmtFloat(r.Power),      // Power
		}
		data = append(data, row)
	}

	// --- 4. Render the table ---
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// writeSummary writes the per-stratum and overall summary lines.
func writeSummary(writer io.Writer, rep *schema.ComparisonReport, cfg *contract.Config, duration time.Duration) error {
	s := rep.Summary
	if _, err := fmt.Fprintf(writer, "Showing %d comparisons across %d strata\n", s.Comparisons, len(rep.Strata)); err != nil {
		return err
	}
	for _, st := range rep.Strata {
		if _, err := fmt.Fprintf(writer, "  %s: %d/%d significant after FDR (raw: %d)\n", st.Stratum, st.SignificantFDR, st.Comparisons, st.SignificantRaw); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(writer, "Significant at alpha %g: %d raw, %d after FDR\n", cfg.Alpha, s.SignificantRaw, s.SignificantFDR); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(writer, "Mean improvement: %+.*f pp\n", cfg.Precision, s.MeanImprovement); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(writer, "Items improved: %d, Worsened: %d, Unchanged: %d\n", s.Improved, s.Worsened, s.Unchanged); err != nil {
		return err
	}
	if n := len(rep.Skipped); n > 0 {
		if _, err := fmt.Fprintf(writer, "Skipped groups: %d\n", n); err != nil {
			return err
		}
		for _, sk := range rep.Skipped {
			if _, err := fmt.Fprintf(writer, "  %s/%s: %s\n", sk.Model, sk.Stratum, sk.Reason); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintf(writer, "Comparison completed in %v with %d workers. History backend: %s\n", duration, cfg.Workers, cfg.HistoryBackend); err != nil {
		return err
	}
	return nil
}
