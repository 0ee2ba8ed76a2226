package contract

import (
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/huangsam/ragdelta/schema"
	"github.com/rotisserie/eris"
)

// Default values for configuration.
const (
	DefaultPattern   = "{model}/{stratum}/{condition}.csv"
	DefaultBaseline  = "baseline"
	DefaultTreatment = "rag"
	DefaultAlpha     = 0.05
	DefaultBootstrap = 1000
	DefaultPrecision = 3
	MaxPrecision     = 6
	MaxBootstrap     = 1_000_000
)

// Default report column names.
const (
	DefaultItemPathColumn  = "item_path"
	DefaultStatusColumn    = "status"
	DefaultExemptionColumn = "exemption"
)

// Pattern placeholders.
const (
	ModelPlaceholder     = "{model}"
	StratumPlaceholder   = "{stratum}"
	ConditionPlaceholder = "{condition}"
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// LabelConfig maps model and stratum directory names to display names.
// Names without a mapping are shown as-is.
type LabelConfig struct {
	Models map[string]string `mapstructure:"models"`
	Strata map[string]string `mapstructure:"strata"`
}

// ModelLabel returns the display name of a model.
func (l LabelConfig) ModelLabel(model string) string {
	if label, ok := l.Models[model]; ok && label != "" {
		return label
	}
	return model
}

// StratumLabel returns the display name of a stratum.
func (l LabelConfig) StratumLabel(stratum string) string {
	if label, ok := l.Strata[stratum]; ok && label != "" {
		return label
	}
	return stratum
}

// ColumnConfig names the report columns read by the loaders.
type ColumnConfig struct {
	ItemPath  string `mapstructure:"item_path"`
	Status    string `mapstructure:"status"`
	Exemption string `mapstructure:"exemption"`
}

// Config holds the runtime configuration for a comparison run.
// This struct remains the "final, validated" config.
type Config struct {
	ReportsDir string
	Pattern    string
	Baseline   string
	Treatment  string
	Models     []string // empty means discover
	Strata     []string // empty means discover

	Alpha     float64
	Bootstrap int
	Seed      *uint64 // nil keeps the bootstrap unseeded
	Workers   int

	Precision  int
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	Labels  LabelConfig
	Columns ColumnConfig
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	ReportsDirStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	OutputFile       string `mapstructure:"output-file"`
	Workers          int    `mapstructure:"workers"`
	Precision        int    `mapstructure:"precision"`
	Output           string `mapstructure:"output"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`

	// --- Fields from compareCmd.Flags() ---
	ReportsDir string  `mapstructure:"reports-dir"`
	Pattern    string  `mapstructure:"pattern"`
	Baseline   string  `mapstructure:"baseline"`
	Treatment  string  `mapstructure:"treatment"`
	Models     string  `mapstructure:"models"`
	Strata     string  `mapstructure:"strata"`
	Alpha      float64 `mapstructure:"alpha"`
	Bootstrap  int     `mapstructure:"bootstrap"`
	Seed       string  `mapstructure:"seed"`

	// --- Display names from config file ---
	Labels LabelConfig `mapstructure:"labels"`

	// --- Report column names from config file ---
	Columns ColumnConfig `mapstructure:"columns"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Models = slices.Clone(c.Models)
	clone.Strata = slices.Clone(c.Strata)
	if c.Seed != nil {
		seed := *c.Seed
		clone.Seed = &seed
	}
	clone.Labels = LabelConfig{
		Models: maps.Clone(c.Labels.Models),
		Strata: maps.Clone(c.Labels.Strata),
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateStatistics(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfig(cfg, input); err != nil {
		return err
	}
	if err := processReportLayout(cfg, input); err != nil {
		return err
	}
	processLabelsAndColumns(cfg, input)
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return eris.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return eris.New("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return eris.New("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return eris.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return eris.New("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return eris.New("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ValidateHistoryBackend normalizes and validates a history backend name together
// with its connection string. An empty name selects the none backend.
func ValidateHistoryBackend(backend, connStr string) (schema.DatabaseBackend, error) {
	db := schema.DatabaseBackend(strings.ToLower(strings.TrimSpace(backend)))
	if db == "" {
		db = schema.NoneBackend
	}
	if _, ok := schema.ValidDatabaseBackends[db]; !ok {
		return "", eris.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", backend)
	}
	if err := ValidateDatabaseConnectionString(db, connStr); err != nil {
		return "", err
	}
	return db, nil
}

// validateBackendConfig validates the history backend configuration.
func validateBackendConfig(cfg *Config, input *ConfigRawInput) error {
	backend, err := ValidateHistoryBackend(input.HistoryBackend, input.HistoryDBConnect)
	if err != nil {
		return err
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = input.HistoryDBConnect
	return nil
}

// validateSimpleInputs processes and validates the output-related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return eris.Wrap(err, "invalid --color value")
	}
	cfg.UseColors = colors

	if input.Workers <= 0 {
		return eris.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 1 || input.Precision > MaxPrecision {
		return eris.Errorf("precision must be between 1 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return eris.Errorf("invalid output format '%s'. must be text, csv, json, parquet", cfg.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return eris.New("parquet output requires --output-file")
	}

	if input.Width < 0 {
		return eris.Errorf("width cannot be negative (received %d)", input.Width)
	}
	return nil
}

// validateStatistics validates the test level, bootstrap size and seed.
func validateStatistics(cfg *Config, input *ConfigRawInput) error {
	if input.Alpha <= 0 || input.Alpha >= 1 {
		return eris.Errorf("alpha must be between 0 and 1 exclusive (received %g)", input.Alpha)
	}
	cfg.Alpha = input.Alpha

	if input.Bootstrap < 1 || input.Bootstrap > MaxBootstrap {
		return eris.Errorf("bootstrap must be between 1 and %d (received %d)", MaxBootstrap, input.Bootstrap)
	}
	cfg.Bootstrap = input.Bootstrap

	cfg.Seed = nil
	if s := strings.TrimSpace(input.Seed); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return eris.Wrapf(err, "invalid --seed value '%s'", input.Seed)
		}
		cfg.Seed = &seed
	}
	return nil
}

// processReportLayout resolves the reports directory, path pattern, condition
// names and the optional model and stratum selections.
func processReportLayout(cfg *Config, input *ConfigRawInput) error {
	dir := input.ReportsDirStr
	if dir == "" {
		dir = input.ReportsDir
	}
	if dir == "" {
		dir = "."
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return eris.Wrapf(err, "cannot resolve reports dir '%s'", dir)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return eris.Wrapf(err, "reports dir '%s' is not accessible", dir)
	}
	if !info.IsDir() {
		return eris.Errorf("reports dir '%s' is not a directory", dir)
	}
	cfg.ReportsDir = filepath.Clean(absDir)

	cfg.Pattern = strings.TrimSpace(input.Pattern)
	if cfg.Pattern == "" {
		cfg.Pattern = DefaultPattern
	}
	if err := ValidatePattern(cfg.Pattern); err != nil {
		return err
	}

	cfg.Baseline = strings.TrimSpace(input.Baseline)
	if cfg.Baseline == "" {
		cfg.Baseline = DefaultBaseline
	}
	cfg.Treatment = strings.TrimSpace(input.Treatment)
	if cfg.Treatment == "" {
		cfg.Treatment = DefaultTreatment
	}
	if cfg.Baseline == cfg.Treatment {
		return eris.Errorf("baseline and treatment must be different conditions (both are '%s')", cfg.Baseline)
	}

	cfg.Models = ParseList(input.Models)
	cfg.Strata = ParseList(input.Strata)
	return nil
}

// RevalidateCompare re-checks a config whose report layout or statistics
// were overridden after ProcessAndValidate, as the MCP tools do.
func RevalidateCompare(cfg *Config) error {
	input := &ConfigRawInput{
		ReportsDirStr: cfg.ReportsDir,
		Pattern:       cfg.Pattern,
		Baseline:      cfg.Baseline,
		Treatment:     cfg.Treatment,
		Models:        strings.Join(cfg.Models, ","),
		Strata:        strings.Join(cfg.Strata, ","),
		Alpha:         cfg.Alpha,
		Bootstrap:     cfg.Bootstrap,
	}
	seed := cfg.Seed
	if err := validateStatistics(cfg, input); err != nil {
		return err
	}
	cfg.Seed = seed
	return processReportLayout(cfg, input)
}

// processLabelsAndColumns copies display names and fills in default column names.
func processLabelsAndColumns(cfg *Config, input *ConfigRawInput) {
	cfg.Labels = LabelConfig{
		Models: maps.Clone(input.Labels.Models),
		Strata: maps.Clone(input.Labels.Strata),
	}

	cfg.Columns = input.Columns
	if strings.TrimSpace(cfg.Columns.ItemPath) == "" {
		cfg.Columns.ItemPath = DefaultItemPathColumn
	}
	if strings.TrimSpace(cfg.Columns.Status) == "" {
		cfg.Columns.Status = DefaultStatusColumn
	}
	if strings.TrimSpace(cfg.Columns.Exemption) == "" {
		cfg.Columns.Exemption = DefaultExemptionColumn
	}
}

// ValidatePattern checks that a report path pattern names every placeholder
// exactly once and is relative.
func ValidatePattern(pattern string) error {
	if filepath.IsAbs(pattern) {
		return eris.Errorf("pattern '%s' must be relative to the reports dir", pattern)
	}
	for _, ph := range []string{ModelPlaceholder, StratumPlaceholder, ConditionPlaceholder} {
		if n := strings.Count(pattern, ph); n != 1 {
			return eris.Errorf("pattern '%s' must contain %s exactly once (found %d)", pattern, ph, n)
		}
	}
	if _, ok := schema.ValidReportFormats[schema.ReportFormat(strings.ToLower(filepath.Ext(pattern)))]; !ok {
		return eris.Errorf("pattern '%s' has an unsupported extension. must be .csv, .json, .jsonl, .xlsx, .parquet", pattern)
	}
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// ParseList splits a comma-separated list, dropping blanks and duplicates
// while keeping the first-seen order.
func ParseList(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}
