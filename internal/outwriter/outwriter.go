// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/ragdelta/internal/contract"
	"github.com/huangsam/ragdelta/internal/parquet"
	"github.com/huangsam/ragdelta/schema"
	"github.com/rotisserie/eris"
)

// LogCompareHeader prints a concise, 2-line header for a comparison run.
func LogCompareHeader(cfg *contract.Config) {
	fmt.Printf("🔎 Reports: %s (Pattern: %s)\n", cfg.ReportsDir, cfg.Pattern)
	fmt.Printf("📊 Comparing: %s ↔ %s (alpha: %g, bootstrap: %d)\n", cfg.Baseline, cfg.Treatment, cfg.Alpha, cfg.Bootstrap)
}

// PrintComparisonReport outputs the report, dispatching based on the output format configured.
// Machine-readable formats keep stdout clean, so their summary goes to stderr.
func PrintComparisonReport(rep *schema.ComparisonReport, cfg *contract.Config, duration time.Duration) error {
	if rep == nil {
		return eris.New("no report to print")
	}

	// Create formatters using helper
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	// Dispatcher: Handle different output formats
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSONReport(w, rep)
		}, "Wrote JSON"); err != nil {
			return eris.Wrap(err, "error writing JSON output")
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVReport(w, rep.Rows, fmtFloat, intFmt)
		}, "Wrote CSV"); err != nil {
			return eris.Wrap(err, "error writing CSV output")
		}
	case schema.ParquetOut:
		if err := writeParquetReport(rep.Rows, cfg.OutputFile); err != nil {
			return eris.Wrap(err, "error writing Parquet output")
		}
		_, _ = fmt.Fprintf(os.Stderr, "💾 Wrote Parquet to %s\n", cfg.OutputFile)
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeComparisonTable(w, rep, cfg, fmtFloat, intFmt); err != nil {
				return err
			}
			return writeSummary(w, rep, cfg, duration)
		}, "Wrote table")
	}
	return writeSummary(os.Stderr, rep, cfg, duration)
}

// writeParquetReport writes the final table to a Parquet file.
func writeParquetReport(rows []schema.ReportRow, outputFile string) error {
	if outputFile == "" {
		return eris.New("parquet output requires --output-file")
	}
	return parquet.WriteComparisonsParquet(parquet.ConvertReportRows(rows), outputFile)
}
