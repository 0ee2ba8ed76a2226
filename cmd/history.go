package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/ragdelta/internal/contract"
	"github.com/huangsam/ragdelta/internal/history"
	"github.com/huangsam/ragdelta/schema"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyBackendSetup loads the config file and validates the history backend
// without touching the reports directory.
func historyBackendSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	backend, err := contract.ValidateHistoryBackend(viper.GetString("history-backend"), viper.GetString("history-db-connect"))
	if err != nil {
		return err
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = viper.GetString("history-db-connect")
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// historySetup loads minimal configuration needed for history operations.
// This is used by commands that need history access without full shared setup.
func historySetup() error {
	if err := historyBackendSetup(); err != nil {
		return err
	}
	if err := history.InitHistory(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return eris.Wrap(err, "failed to initialize run history")
	}
	return nil
}

// historySetupWrapper wraps historySetup to provide PreRunE for history commands.
func historySetupWrapper(_ *cobra.Command, _ []string) error {
	return historySetup()
}

// historyMigrateSetupWrapper loads configuration for the migrate command.
// It does NOT create tables, so migrations can run on a fresh database.
func historyMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	if err := historyBackendSetup(); err != nil {
		return err
	}
	// For SQLite backend with empty connection string, use default path
	if cfg.HistoryBackend == schema.SQLiteBackend && cfg.HistoryDBConnect == "" {
		cfg.HistoryDBConnect = history.GetHistoryDBFilePath()
	}
	return nil
}

// historyCmd focused on run history management.
//
// Note: History subcommands use minimal initialization (historySetup) instead of
// the full sharedSetup used by compare. This avoids reports dir validation
// for simple history operations.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage recorded comparison runs and exports",
	Long: `Manage the history of comparison runs.

When enabled with --history-backend, every compare run stores:
- Run metadata (timestamp, configuration, duration)
- One row per corrected comparison with all of its statistics

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, default)

Subcommands:
  status  - Show history statistics
  export  - Export runs and comparisons to Parquet
  clear   - Remove all recorded runs
  migrate - Run database schema migrations

Examples:
  # Check history status
  ragdelta history status --history-backend sqlite

  # Export for analysis in pandas/DuckDB
  ragdelta history export --history-backend sqlite --output-file ragdelta`,
}

// historyClearCmd clears the run history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded comparison runs",
	Long: `Delete all stored runs and comparison rows.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the history tables

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  # Export before clearing
  ragdelta history export --history-backend sqlite --output-file backup
  ragdelta history clear --history-backend sqlite`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return historyBackendSetup()
	},
	Run: func(_ *cobra.Command, _ []string) {
		dbFilePath := history.GetHistoryDBFilePath()
		if cfg.HistoryBackend == schema.SQLiteBackend && cfg.HistoryDBConnect != "" {
			dbFilePath = cfg.HistoryDBConnect
		}
		if err := history.ClearHistory(cfg.HistoryBackend, dbFilePath, cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear run history", err)
		}
		fmt.Println("Run history cleared successfully.")
	},
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run history statistics and connection details",
	Long: `Show detailed information about the run history.

Displays:
- Backend type and connection status
- Total number of recorded runs and comparisons
- Last and oldest run timestamps
- Database table sizes

Examples:
  # Check history status
  ragdelta history status --history-backend sqlite`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := history.Manager.GetHistoryStore()
		if store == nil {
			history.PrintHistoryStatus(os.Stdout, schema.HistoryStatus{Backend: string(cfg.HistoryBackend)})
			return
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get history status", err)
		}
		history.PrintHistoryStatus(os.Stdout, status)
	},
}

// historyExportCmd exports run history to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded runs to Parquet for BI tools and analytics",
	Long: `Export all stored history to Parquet format for use with analytics tools.

Writes two files next to --output-file:
- <output-file>.runs.parquet - metadata about each run
- <output-file>.comparisons.parquet - every recorded comparison row

Requires: --output-file parameter

Examples:
  # Export all data
  ragdelta history export --history-backend sqlite --output-file ragdelta

  # Use with DuckDB for analysis
  duckdb -c "SELECT model, stratum, avg(mean_diff_pct) FROM read_parquet('ragdelta.comparisons.parquet') GROUP BY 1, 2"`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := history.ExecuteHistoryExport(os.Stdout, history.Manager.GetHistoryStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export run history", err)
		}
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  ragdelta history migrate --history-backend sqlite

  # Migrate to specific version
  ragdelta history migrate --history-backend sqlite --target-version 1

  # Rollback to initial state
  ragdelta history migrate --history-backend sqlite --target-version 0`,
	PreRunE: historyMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := history.MigrateHistory(os.Stdout, cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
