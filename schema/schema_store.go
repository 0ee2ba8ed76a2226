package schema

import "time"

// RunRecord represents a row from the ragdelta_runs table.
type RunRecord struct {
	RunID            int64
	StartTime        time.Time
	EndTime          *time.Time
	RunDurationMs    *int32
	TotalComparisons int32
	ConfigParams     *string
}

// ComparisonRecord represents a row from the ragdelta_comparisons table.
type ComparisonRecord struct {
	RunID    int64
	Recorded time.Time
	ReportRow
}

// HistoryStatus represents the status of the run history store.
type HistoryStatus struct {
	Backend          string
	Connected        bool
	TotalRuns        int
	LastRunID        int64
	LastRunTime      time.Time
	OldestRunTime    time.Time
	TotalComparisons int64
	TableSizes       map[string]int64
}
