package history

import (
	"fmt"
	"io"

	"github.com/huangsam/ragdelta/internal/contract"
	"github.com/huangsam/ragdelta/internal/parquet"
	"github.com/rotisserie/eris"
)

// ExecuteHistoryExport exports every recorded run and comparison to two
// Parquet files named after outputFile.
func ExecuteHistoryExport(w io.Writer, store contract.HistoryStore, outputFile string) error {
	if outputFile == "" {
		return eris.New("--output-file is required for export command")
	}
	if store == nil {
		return eris.New("history is disabled. Set --history-backend to export runs")
	}

	status, err := store.GetStatus()
	if err != nil {
		return eris.Wrap(err, "failed to get history status")
	}
	if status.TotalRuns == 0 {
		return eris.New("no history data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total comparison records: %d\n", status.TableSizes[comparisonsTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return eris.Wrap(err, "failed to retrieve runs")
	}
	comparisons, err := store.GetAllComparisons()
	if err != nil {
		return eris.Wrap(err, "failed to retrieve comparisons")
	}

	parquetRuns := parquet.ConvertRunRecords(runs)
	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteRunsParquet(parquetRuns, runsFile); err != nil {
		return eris.Wrap(err, "failed to write runs")
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(parquetRuns), runsFile)

	parquetComparisons := parquet.ConvertComparisonRecords(comparisons)
	comparisonsFile := outputFile + ".comparisons.parquet"
	if err := parquet.WriteRecordedComparisonsParquet(parquetComparisons, comparisonsFile); err != nil {
		return eris.Wrap(err, "failed to write comparisons")
	}
	_, _ = fmt.Fprintf(w, "Exported %d comparison records to: %s\n", len(parquetComparisons), comparisonsFile)

	return nil
}
