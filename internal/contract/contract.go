// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/ragdelta/schema"
)

// ReportSource locates and loads raw report rows.
// This allows the comparison pipeline to be tested without report files on disk.
type ReportSource interface {
	// Groups returns every (model, stratum) pair the source can serve, sorted
	// by stratum and then model.
	Groups(ctx context.Context) ([]schema.GroupKey, error)

	// Load returns the rows of one condition's report for a group.
	Load(ctx context.Context, key schema.GroupKey, condition string) ([]schema.TestCaseResult, error)
}

// HistoryManager defines the interface for managing the run-history store.
// This allows the history layer to be mocked for testing.
type HistoryManager interface {
	GetHistoryStore() HistoryStore
}

// HistoryStore defines the interface for recording comparison runs.
type HistoryStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, totalComparisons int) error

	// RecordComparisons stores the corrected rows of a run
	RecordComparisons(runID int64, rows []schema.ReportRow) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns retrieves all recorded runs
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllComparisons retrieves all recorded comparison rows
	GetAllComparisons() ([]schema.ComparisonRecord, error)

	// Close closes the underlying connection
	Close() error
}
