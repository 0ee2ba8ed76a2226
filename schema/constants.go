package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// TestStatus represents the outcome recorded for a single test case.
	TestStatus string

	// Magnitude represents the qualitative size of a Cliff's delta.
	Magnitude string

	// DatabaseBackend represents the database backend for run history.
	DatabaseBackend string

	// ReportFormat represents the file format of a raw report.
	ReportFormat string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All test statuses recognized by the pass-rate computation.
const (
	PassedStatus  TestStatus = "passed"
	FailedStatus  TestStatus = "failed"
	ErrorStatus   TestStatus = "error"
	SkippedStatus TestStatus = "skipped"
	XFailedStatus TestStatus = "xfailed"
	XPassedStatus TestStatus = "xpassed"
)

// All effect-size magnitudes.
const (
	NegligibleMagnitude Magnitude = "Negligible"
	SmallMagnitude      Magnitude = "Small"
	MediumMagnitude     Magnitude = "Medium"
	LargeMagnitude      Magnitude = "Large"
)

// All history backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All report formats supported, keyed by file extension.
const (
	CSVReport     ReportFormat = ".csv" // default
	JSONReport    ReportFormat = ".json"
	JSONLReport   ReportFormat = ".jsonl"
	XLSXReport    ReportFormat = ".xlsx"
	ParquetReport ReportFormat = ".parquet"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid history backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidReportFormats lists all readable report formats.
var ValidReportFormats = map[ReportFormat]struct{}{
	CSVReport:     {},
	JSONReport:    {},
	JSONLReport:   {},
	XLSXReport:    {},
	ParquetReport: {},
}
