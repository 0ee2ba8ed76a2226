// Package parquet provides data structures and functions for exporting ragdelta
// comparison data to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"os"
	"time"

	"github.com/huangsam/ragdelta/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"
)

// Run represents a single recorded comparison run.
// This struct maps to the ragdelta_runs database table.
type Run struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the run began
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// TotalComparisons is the number of table rows the run produced
	TotalComparisons int32 `parquet:"total_comparisons,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// Comparison is one row of the final table. Undefined statistics are null.
type Comparison struct {
	Model       string   `parquet:"model,snappy"`
	Stratum     string   `parquet:"stratum,snappy"`
	N           int32    `parquet:"n,snappy"`
	MeanDiff    *float64 `parquet:"mean_diff,optional,snappy"`
	MeanDiffPct *float64 `parquet:"mean_diff_pct,optional,snappy"`
	MedianDiff  *float64 `parquet:"median_diff,optional,snappy"`
	PRaw        *float64 `parquet:"p_raw,optional,snappy"`
	PFDR        *float64 `parquet:"p_fdr,optional,snappy"`
	RejectFDR   bool     `parquet:"reject_fdr,snappy"`
	CliffsDelta *float64 `parquet:"cliffs_delta,optional,snappy"`
	Magnitude   string   `parquet:"magnitude,snappy"`
	CILow       *float64 `parquet:"ci_low,optional,snappy"`
	CIHigh      *float64 `parquet:"ci_high,optional,snappy"`
	Improved    int32    `parquet:"improved,snappy"`
	Worsened    int32    `parquet:"worsened,snappy"`
	Unchanged   int32    `parquet:"unchanged,snappy"`
	Skewness    *float64 `parquet:"skewness,optional,snappy"`
	SignTestP   *float64 `parquet:"sign_test_p,optional,snappy"`
	EffectSize  *float64 `parquet:"effect_size,optional,snappy"`
	Power       *float64 `parquet:"power,optional,snappy"`
}

// RecordedComparison is a Comparison tagged with the run that produced it.
// This struct maps to the ragdelta_comparisons database table.
type RecordedComparison struct {
	RunID        int64     `parquet:"run_id,snappy"`
	RecordedTime time.Time `parquet:"recorded_time,snappy"`
	Model        string    `parquet:"model,snappy"`
	Stratum      string    `parquet:"stratum,snappy"`
	N            int32     `parquet:"n,snappy"`
	MeanDiff     *float64  `parquet:"mean_diff,optional,snappy"`
	MeanDiffPct  *float64  `parquet:"mean_diff_pct,optional,snappy"`
	MedianDiff   *float64  `parquet:"median_diff,optional,snappy"`
	PRaw         *float64  `parquet:"p_raw,optional,snappy"`
	PFDR         *float64  `parquet:"p_fdr,optional,snappy"`
	RejectFDR    bool      `parquet:"reject_fdr,snappy"`
	CliffsDelta  *float64  `parquet:"cliffs_delta,optional,snappy"`
	Magnitude    string    `parquet:"magnitude,snappy"`
	CILow        *float64  `parquet:"ci_low,optional,snappy"`
	CIHigh       *float64  `parquet:"ci_high,optional,snappy"`
	Improved     int32     `parquet:"improved,snappy"`
	Worsened     int32     `parquet:"worsened,snappy"`
	Unchanged    int32     `parquet:"unchanged,snappy"`
	Skewness     *float64  `parquet:"skewness,optional,snappy"`
	SignTestP    *float64  `parquet:"sign_test_p,optional,snappy"`
	EffectSize   *float64  `parquet:"effect_size,optional,snappy"`
	Power        *float64  `parquet:"power,optional,snappy"`
}

// writeParquet writes a slice of rows to a Parquet file. The schema is
// derived from the struct tags of T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return eris.Wrap(err, "failed to create output file")
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return eris.Wrap(err, "failed to write data to parquet file")
	}
	if err := writer.Close(); err != nil {
		return eris.Wrap(err, "failed to finalize parquet file")
	}
	return nil
}

// WriteRunsParquet writes runs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteComparisonsParquet writes the rows of one comparison report to a Parquet file.
func WriteComparisonsParquet(data []Comparison, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteRecordedComparisonsParquet writes recorded comparison rows to a Parquet file.
func WriteRecordedComparisonsParquet(data []RecordedComparison, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:            record.RunID,
			StartTime:        record.StartTime,
			EndTime:          record.EndTime,
			RunDurationMs:    record.RunDurationMs,
			TotalComparisons: record.TotalComparisons,
			ConfigParams:     record.ConfigParams,
		}
	}
	return result
}

// ConvertReportRows converts table rows to Comparison for Parquet output.
func ConvertReportRows(rows []schema.ReportRow) []Comparison {
	result := make([]Comparison, len(rows))
	for i, r := range rows {
		result[i] = Comparison{
			Model:       r.Model,
			Stratum:     r.Stratum,
			N:           int32(r.N),
			MeanDiff:    schema.FiniteOrNil(r.MeanDiff),
			MeanDiffPct: schema.FiniteOrNil(r.MeanDiffPct),
			MedianDiff:  schema.FiniteOrNil(r.MedianDiff),
			PRaw:        schema.FiniteOrNil(r.PRaw),
			PFDR:        schema.FiniteOrNil(r.PFDR),
			RejectFDR:   r.RejectFDR,
			CliffsDelta: schema.FiniteOrNil(r.CliffsDelta),
			Magnitude:   string(r.Magnitude),
			CILow:       schema.FiniteOrNil(r.CILow),
			CIHigh:      schema.FiniteOrNil(r.CIHigh),
			Improved:    int32(r.Improved),
			Worsened:    int32(r.Worsened),
			Unchanged:   int32(r.Unchanged),
			Skewness:    schema.FiniteOrNil(r.Skewness),
			SignTestP:   schema.FiniteOrNil(r.SignTestP),
			EffectSize:  schema.FiniteOrNil(r.EffectSize),
			Power:       schema.FiniteOrNil(r.Power),
		}
	}
	return result
}

// ConvertComparisonRecords converts schema.ComparisonRecord to RecordedComparison for Parquet export.
func ConvertComparisonRecords(records []schema.ComparisonRecord) []RecordedComparison {
	rows := make([]schema.ReportRow, len(records))
	for i, record := range records {
		rows[i] = record.ReportRow
	}
	converted := ConvertReportRows(rows)

	result := make([]RecordedComparison, len(records))
	for i, c := range converted {
		result[i] = RecordedComparison{
			RunID:        records[i].RunID,
			RecordedTime: records[i].Recorded,
			Model:        c.Model,
			Stratum:      c.Stratum,
			N:            c.N,
			MeanDiff:     c.MeanDiff,
			MeanDiffPct:  c.MeanDiffPct,
			MedianDiff:   c.MedianDiff,
			PRaw:         c.PRaw,
			PFDR:         c.PFDR,
			RejectFDR:    c.RejectFDR,
			CliffsDelta:  c.CliffsDelta,
			Magnitude:    c.Magnitude,
			CILow:        c.CILow,
			CIHigh:       c.CIHigh,
			Improved:     c.Improved,
			Worsened:     c.Worsened,
			Unchanged:    c.Unchanged,
			Skewness:     c.Skewness,
			SignTestP:    c.SignTestP,
			EffectSize:   c.EffectSize,
			Power:        c.Power,
		}
	}
	return result
}
