package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/ragdelta/schema"
)

// reportCSVHeader names the columns of the CSV table.
var reportCSVHeader = []string{
	"rank",
	"model",
	"stratum",
	"n",
	"mean_diff",
	"mean_diff_pct",
	"median_diff",
	"p_raw",
	"p_fdr",
	"reject_fdr",
	"cliffs_delta",
	"magnitude",
	"ci_low",
	"ci_high",
	"improved",
	"worsened",
	"unchanged",
	"skewness",
	"sign_test_p",
	"effect_size",
	"power",
}

// writeJSONReport marshals the report document to JSON and writes it.
func writeJSONReport(w io.Writer, rep *schema.ComparisonReport) error {
	return writeJSON(w, schema.NewReportDocument(*rep))
}

// writeCSVReport writes the table rows as CSV. Undefined statistics are empty.
func writeCSVReport(w io.Writer, rows []schema.ReportRow, fmtFloat func(float64) string, intFmt string) error {
	return writeCSVWithHeader(w, reportCSVHeader, func(cw *csv.Writer) error {
		for i, r := range rows {
			row := []string{
				strconv.Itoa(i + 1),
				r.Model,
				r.Stratum,
				fmt.Sprintf(intFmt, r.N),
				csvFloat(fmtFloat, r.MeanDiff),
				csvFloat(fmtFloat, r.MeanDiffPct),
				csvFloat(fmtFloat, r.MedianDiff),
				csvFloat(fmtFloat, r.PRaw),
				csvFloat(fmtFloat, r.PFDR),
				strconv.FormatBool(r.RejectFDR),
				csvFloat(fmtFloat, r.CliffsDelta),
				string(r.Magnitude),
				csvFloat(fmtFloat, r.CILow),
				csvFloat(fmtFloat, r.CIHigh),
				fmt.Sprintf(intFmt, r.Improved),
				fmt.Sprintf(intFmt, r.Worsened),
				fmt.Sprintf(intFmt, r.Unchanged),
				csvFloat(fmtFloat, r.Skewness),
				csvFloat(fmtFloat, r.SignTestP),
				csvFloat(fmtFloat, r.EffectSize),
				csvFloat(fmtFloat, r.Power),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}
