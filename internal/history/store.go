package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/ragdelta/internal/contract"
	"github.com/huangsam/ragdelta/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // SQLite driver
)

// Table names for run history.
const (
	runsTable        = "ragdelta_runs"
	comparisonsTable = "ragdelta_comparisons"
)

// comparisonColumns lists the stored statistics in insert order.
var comparisonColumns = []string{
	"run_id", "model", "stratum", "recorded_time", "n",
	"mean_diff", "mean_diff_pct", "median_diff", "p_raw", "p_fdr", "reject_fdr",
	"cliffs_delta", "magnitude", "ci_low", "ci_high",
	"improved", "worsened", "unchanged",
	"skewness", "sign_test_p", "effect_size", "power",
}

// HistoryStoreImpl implements the HistoryStore interface on database/sql.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// driverFor returns the database/sql driver name of a backend.
func driverFor(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "pgx", nil
	default:
		return "", eris.Errorf("unsupported backend: %s", backend)
	}
}

// openDB opens and pings the database of a backend.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	driverName, err := driverFor(backend)
	if err != nil {
		return nil, err
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = GetHistoryDBFilePath()
	}

	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to open %s database", backend)
	}
	if backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "Check that MySQL is running and the connection string is correct. Ensure user/password are valid."
		case schema.PostgreSQLBackend:
			connDetail = "Check that PostgreSQL is running and the connection string is correct. Ensure user/password are valid."
		default:
			connDetail = "Check that the directory is writable."
		}
		return nil, eris.Wrapf(err, "failed to connect to %s database. %s", backend, connDetail)
	}
	return db, nil
}

// NewHistoryStore creates a HistoryStore for the specified backend and makes
// sure its tables exist.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.NoneBackend {
		// No-op store for disabled tracking
		return &HistoryStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "failed to create history tables")
	}

	return &HistoryStoreImpl{db: db, backend: backend, connStr: connStr}, nil
}

// createHistoryTables executes the embedded up migrations of a backend in
// order. Every statement is idempotent.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	dir := path.Join("migrations", string(backend))
	names, err := fs.Glob(migrationsFS, path.Join(dir, "*.up.sql"))
	if err != nil {
		return eris.Wrap(err, "failed to list migrations")
	}
	slices.Sort(names)

	for _, name := range names {
		query, err := fs.ReadFile(migrationsFS, name)
		if err != nil {
			return eris.Wrapf(err, "failed to read %s", name)
		}
		if _, err := db.Exec(string(query)); err != nil {
			return eris.Wrapf(err, "failed to apply %s", path.Base(name))
		}
	}
	return nil
}

// placeholders returns n bind parameters in the syntax of the backend.
func placeholders(backend schema.DatabaseBackend, n int) []string {
	out := make([]string, n)
	for i := range out {
		if backend == schema.PostgreSQLBackend {
			out[i] = fmt.Sprintf("$%d", i+1)
		} else {
			out[i] = "?"
		}
	}
	return out
}

// disabled reports whether the store skips every operation.
func (hs *HistoryStoreImpl) disabled() bool {
	return hs.backend == schema.NoneBackend || hs.db == nil
}

// BeginRun creates a new run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	if hs.disabled() {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, eris.Wrap(err, "failed to marshal config params")
	}

	quoted := quoteTableName(runsTable, hs.backend)
	var runID int64
	switch hs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES ($1, $2) RETURNING run_id`, quoted)
		err = hs.db.QueryRow(query, startTime, string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, quoted)
		var result sql.Result
		result, err = hs.db.Exec(query, formatTime(startTime, hs.backend), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, eris.Wrap(err, "failed to insert run")
	}
	return runID, nil
}

// EndRun stores the end time, duration and comparison count of a run.
func (hs *HistoryStoreImpl) EndRun(runID int64, endTime time.Time, totalComparisons int) error {
	if hs.disabled() {
		return nil
	}

	quoted := quoteTableName(runsTable, hs.backend)
	ph := placeholders(hs.backend, 4)

	row := hs.db.QueryRow(fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, quoted, ph[0]), runID)
	startTime, err := scanTime(row, hs.backend)
	if err != nil {
		return eris.Wrapf(err, "failed to get start_time for run %d", runID)
	}
	durationMs := endTime.Sub(startTime).Milliseconds()

	query := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, total_comparisons = %s WHERE run_id = %s`,
		quoted, ph[0], ph[1], ph[2], ph[3])
	if _, err := hs.db.Exec(query, formatTime(endTime, hs.backend), durationMs, totalComparisons, runID); err != nil {
		return eris.Wrap(err, "failed to update run")
	}
	return nil
}

// RecordComparisons stores the corrected rows of a run in one transaction.
func (hs *HistoryStoreImpl) RecordComparisons(runID int64, rows []schema.ReportRow) error {
	if hs.disabled() || len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		quoteTableName(comparisonsTable, hs.backend),
		strings.Join(comparisonColumns, ", "),
		strings.Join(placeholders(hs.backend, len(comparisonColumns)), ", "))

	tx, err := hs.db.Begin()
	if err != nil {
		return eris.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return eris.Wrap(err, "failed to prepare comparison insert")
	}
	defer func() { _ = stmt.Close() }()

	recorded := formatTime(time.Now(), hs.backend)
	for _, r := range rows {
		reject := 0
		if r.RejectFDR {
			reject = 1
		}
		if _, err := stmt.Exec(
			runID, r.Model, r.Stratum, recorded, r.N,
			nullable(r.MeanDiff), nullable(r.MeanDiffPct), nullable(r.MedianDiff),
			nullable(r.PRaw), nullable(r.PFDR), reject,
			nullable(r.CliffsDelta), string(r.Magnitude), nullable(r.CILow), nullable(r.CIHigh),
			r.Improved, r.Worsened, r.Unchanged,
			nullable(r.Skewness), nullable(r.SignTestP), nullable(r.EffectSize), nullable(r.Power),
		); err != nil {
			return eris.Wrapf(err, "failed to insert comparison %s/%s", r.Model, r.Stratum)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "failed to commit comparisons")
	}
	return nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.disabled() {
		return status, nil
	}

	runs := quoteTableName(runsTable, hs.backend)
	if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runs)).Scan(&status.TotalRuns); err != nil {
		return status, eris.Wrap(err, "failed to get total runs")
	}

	if status.TotalRuns > 0 {
		row := hs.db.QueryRow(fmt.Sprintf("SELECT run_id FROM %s ORDER BY run_id DESC LIMIT 1", runs))
		if err := row.Scan(&status.LastRunID); err != nil {
			return status, eris.Wrap(err, "failed to get last run id")
		}

		var err error
		row = hs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id DESC LIMIT 1", runs))
		if status.LastRunTime, err = scanTime(row, hs.backend); err != nil {
			return status, eris.Wrap(err, "failed to get last run time")
		}
		row = hs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", runs))
		if status.OldestRunTime, err = scanTime(row, hs.backend); err != nil {
			return status, eris.Wrap(err, "failed to get oldest run time")
		}

		row = hs.db.QueryRow(fmt.Sprintf("SELECT COALESCE(SUM(total_comparisons), 0) FROM %s", runs))
		if err := row.Scan(&status.TotalComparisons); err != nil {
			return status, eris.Wrap(err, "failed to get total comparisons")
		}
	}

	for _, table := range []string{runsTable, comparisonsTable} {
		var count int64
		row := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend)))
		if err := row.Scan(&count); err != nil {
			return status, eris.Wrapf(err, "failed to get count for table %s", table)
		}
		status.TableSizes[table] = count
	}

	if hs.backend == schema.MySQLBackend {
		// Report the schema name alongside the backend when the DSN parses.
		if cfg, err := mysql.ParseDSN(hs.connStr); err == nil && cfg.DBName != "" {
			status.Backend = fmt.Sprintf("%s (%s)", hs.backend, cfg.DBName)
		}
	}

	return status, nil
}

// GetAllRuns retrieves all recorded runs ordered by ID.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT run_id, start_time, end_time, run_duration_ms, total_comparisons, config_params FROM %s ORDER BY run_id",
		quoteTableName(runsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, eris.Wrap(err, "failed to query runs")
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var record schema.RunRecord
		var total sql.NullInt32
		switch hs.backend {
		case schema.SQLiteBackend:
			var startStr string
			var endStr *string
			if err := rows.Scan(&record.RunID, &startStr, &endStr, &record.RunDurationMs, &total, &record.ConfigParams); err != nil {
				return nil, eris.Wrap(err, "failed to scan run")
			}
			if record.StartTime, err = time.Parse(time.RFC3339Nano, startStr); err != nil {
				return nil, eris.Wrap(err, "failed to parse start_time")
			}
			if endStr != nil {
				end, err := time.Parse(time.RFC3339Nano, *endStr)
				if err != nil {
					return nil, eris.Wrap(err, "failed to parse end_time")
				}
				record.EndTime = &end
			}
		default: // MySQL and PostgreSQL
			if err := rows.Scan(&record.RunID, &record.StartTime, &record.EndTime, &record.RunDurationMs, &total, &record.ConfigParams); err != nil {
				return nil, eris.Wrap(err, "failed to scan run")
			}
		}
		record.TotalComparisons = total.Int32
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "error iterating runs")
	}
	return results, nil
}

// GetAllComparisons retrieves all recorded comparison rows ordered by run,
// stratum and model.
func (hs *HistoryStoreImpl) GetAllComparisons() ([]schema.ComparisonRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY run_id, stratum, model",
		strings.Join(comparisonColumns, ", "), quoteTableName(comparisonsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, eris.Wrap(err, "failed to query comparisons")
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ComparisonRecord
	for rows.Next() {
		var (
			record    schema.ComparisonRecord
			recorded  any
			magnitude string
			reject    int
			floats    [12]sql.NullFloat64
		)
		if err := rows.Scan(
			&record.RunID, &record.Model, &record.Stratum, &recorded, &record.N,
			&floats[0], &floats[1], &floats[2], &floats[3], &floats[4], &reject,
			&floats[5], &magnitude, &floats[6], &floats[7],
			&record.Improved, &record.Worsened, &record.Unchanged,
			&floats[8], &floats[9], &floats[10], &floats[11],
		); err != nil {
			return nil, eris.Wrap(err, "failed to scan comparison")
		}
		if record.Recorded, err = parseTime(recorded); err != nil {
			return nil, eris.Wrap(err, "failed to parse recorded_time")
		}
		record.Magnitude = schema.Magnitude(magnitude)
		record.RejectFDR = reject != 0
		record.MeanDiff = orNaN(floats[0])
		record.MeanDiffPct = orNaN(floats[1])
		record.MedianDiff = orNaN(floats[2])
		record.PRaw = orNaN(floats[3])
		record.PFDR = orNaN(floats[4])
		record.CliffsDelta = orNaN(floats[5])
		record.CILow = orNaN(floats[6])
		record.CIHigh = orNaN(floats[7])
		record.Skewness = orNaN(floats[8])
		record.SignTestP = orNaN(floats[9])
		record.EffectSize = orNaN(floats[10])
		record.Power = orNaN(floats[11])
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "error iterating comparisons")
	}
	return results, nil
}

// quoteTableName returns the properly quoted table name for the given backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	if backend == schema.MySQLBackend {
		return fmt.Sprintf("`%s`", name)
	}
	return fmt.Sprintf("\"%s\"", name)
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	if backend == schema.SQLiteBackend {
		return t.Format(time.RFC3339Nano)
	}
	return t
}

// scanTime reads one time column stored in the format of the backend.
func scanTime(row *sql.Row, backend schema.DatabaseBackend) (time.Time, error) {
	if backend == schema.SQLiteBackend {
		var s string
		if err := row.Scan(&s); err != nil {
			return time.Time{}, err
		}
		return time.Parse(time.RFC3339Nano, s)
	}
	var t time.Time
	err := row.Scan(&t)
	return t, err
}

// parseTime accepts both native times and RFC 3339 text.
func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(t))
	default:
		return time.Time{}, eris.Errorf("unexpected time value %T", v)
	}
}

// nullable maps undefined statistics to SQL NULL.
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// orNaN maps SQL NULL back to NaN.
func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
