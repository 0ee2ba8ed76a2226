package contract

import (
	"path/filepath"
	"testing"

	"github.com/huangsam/ragdelta/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput returns a raw input that passes validation for the given dir.
func validInput(dir string) *ConfigRawInput {
	return &ConfigRawInput{
		ReportsDirStr: dir,
		Workers:       4,
		Precision:     DefaultPrecision,
		Output:        "text",
		Color:         "yes",
		Alpha:         DefaultAlpha,
		Bootstrap:     DefaultBootstrap,
	}
}

func TestProcessAndValidate(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
	}{
		{name: "valid minimal config", mutate: func(*ConfigRawInput) {}},
		{name: "invalid workers (zero)", mutate: func(in *ConfigRawInput) { in.Workers = 0 }, expectError: true},
		{name: "invalid workers (negative)", mutate: func(in *ConfigRawInput) { in.Workers = -1 }, expectError: true},
		{name: "invalid precision (zero)", mutate: func(in *ConfigRawInput) { in.Precision = 0 }, expectError: true},
		{name: "invalid precision (too high)", mutate: func(in *ConfigRawInput) { in.Precision = 7 }, expectError: true},
		{name: "invalid output format", mutate: func(in *ConfigRawInput) { in.Output = "invalid_format" }, expectError: true},
		{name: "parquet without file", mutate: func(in *ConfigRawInput) { in.Output = "parquet" }, expectError: true},
		{name: "parquet with file", mutate: func(in *ConfigRawInput) {
			in.Output = "parquet"
			in.OutputFile = filepath.Join(dir, "out.parquet")
		}},
		{name: "invalid color", mutate: func(in *ConfigRawInput) { in.Color = "maybe" }, expectError: true},
		{name: "negative width", mutate: func(in *ConfigRawInput) { in.Width = -1 }, expectError: true},
		{name: "alpha zero", mutate: func(in *ConfigRawInput) { in.Alpha = 0 }, expectError: true},
		{name: "alpha one", mutate: func(in *ConfigRawInput) { in.Alpha = 1 }, expectError: true},
		{name: "bootstrap zero", mutate: func(in *ConfigRawInput) { in.Bootstrap = 0 }, expectError: true},
		{name: "bootstrap too large", mutate: func(in *ConfigRawInput) { in.Bootstrap = MaxBootstrap + 1 }, expectError: true},
		{name: "invalid seed", mutate: func(in *ConfigRawInput) { in.Seed = "-3" }, expectError: true},
		{name: "invalid history backend", mutate: func(in *ConfigRawInput) { in.HistoryBackend = "oracle" }, expectError: true},
		{name: "mysql without connect", mutate: func(in *ConfigRawInput) { in.HistoryBackend = "mysql" }, expectError: true},
		{name: "missing reports dir", mutate: func(in *ConfigRawInput) { in.ReportsDirStr = filepath.Join(dir, "nope") }, expectError: true},
		{name: "pattern without condition", mutate: func(in *ConfigRawInput) { in.Pattern = "{model}/{stratum}.csv" }, expectError: true},
		{name: "same conditions", mutate: func(in *ConfigRawInput) {
			in.Baseline = "rag"
			in.Treatment = "rag"
		}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput(dir)
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessAndValidateDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validInput(dir)))

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(abs), cfg.ReportsDir)
	assert.Equal(t, DefaultPattern, cfg.Pattern)
	assert.Equal(t, DefaultBaseline, cfg.Baseline)
	assert.Equal(t, DefaultTreatment, cfg.Treatment)
	assert.Nil(t, cfg.Seed)
	assert.Empty(t, cfg.Models)
	assert.Empty(t, cfg.Strata)
	assert.Equal(t, schema.NoneBackend, cfg.HistoryBackend)
	assert.Equal(t, schema.TextOut, cfg.Output)
	assert.True(t, cfg.UseColors)
	assert.Equal(t, ColumnConfig{
		ItemPath:  DefaultItemPathColumn,
		Status:    DefaultStatusColumn,
		Exemption: DefaultExemptionColumn,
	}, cfg.Columns)
}

func TestProcessAndValidateOverrides(t *testing.T) {
	dir := t.TempDir()
	input := validInput("")
	input.ReportsDir = dir
	input.Pattern = "{condition}/{model}-{stratum}.jsonl"
	input.Baseline = "plain"
	input.Treatment = "retrieval"
	input.Models = "gpt, llama ,gpt,"
	input.Strata = "dense"
	input.Seed = "42"
	input.Output = "JSON"
	input.HistoryBackend = "SQLite"
	input.Labels = LabelConfig{Models: map[string]string{"gpt": "GPT-4o"}}
	input.Columns = ColumnConfig{Status: "outcome"}

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, "{condition}/{model}-{stratum}.jsonl", cfg.Pattern)
	assert.Equal(t, "plain", cfg.Baseline)
	assert.Equal(t, "retrieval", cfg.Treatment)
	assert.Equal(t, []string{"gpt", "llama"}, cfg.Models)
	assert.Equal(t, []string{"dense"}, cfg.Strata)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, uint64(42), *cfg.Seed)
	assert.Equal(t, schema.JSONOut, cfg.Output)
	assert.Equal(t, schema.SQLiteBackend, cfg.HistoryBackend)
	assert.Equal(t, "GPT-4o", cfg.Labels.ModelLabel("gpt"))
	assert.Equal(t, "outcome", cfg.Columns.Status)
	assert.Equal(t, DefaultItemPathColumn, cfg.Columns.ItemPath)
}

func TestConfigClone(t *testing.T) {
	seed := uint64(7)
	cfg := &Config{
		Models: []string{"a"},
		Seed:   &seed,
		Labels: LabelConfig{Strata: map[string]string{"s": "S"}},
	}
	clone := cfg.Clone()
	clone.Models[0] = "b"
	*clone.Seed = 9
	clone.Labels.Strata["s"] = "changed"

	assert.Equal(t, "a", cfg.Models[0])
	assert.Equal(t, uint64(7), *cfg.Seed)
	assert.Equal(t, "S", cfg.Labels.Strata["s"])
}

func TestLabelConfig(t *testing.T) {
	labels := LabelConfig{
		Models: map[string]string{"gpt4": "GPT-4", "blank": ""},
		Strata: map[string]string{"low_doc": "Low documentation"},
	}
	assert.Equal(t, "GPT-4", labels.ModelLabel("gpt4"))
	assert.Equal(t, "blank", labels.ModelLabel("blank"))
	assert.Equal(t, "other", labels.ModelLabel("other"))
	assert.Equal(t, "Low documentation", labels.StratumLabel("low_doc"))
	assert.Equal(t, "high_doc", LabelConfig{}.StratumLabel("high_doc"))
}

func TestValidatePattern(t *testing.T) {
	tests := []struct {
		pattern string
		valid   bool
	}{
		{DefaultPattern, true},
		{"{stratum}/{model}_{condition}.parquet", true},
		{"{model}/{stratum}/{condition}.XLSX", true},
		{"{model}/{stratum}/{condition}.txt", false},
		{"{model}/{condition}.csv", false},
		{"{model}/{model}/{stratum}/{condition}.csv", false},
		{"/abs/{model}/{stratum}/{condition}.csv", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			err := ValidatePattern(tt.pattern)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		conn    string
		wantErr bool
	}{
		{"sqlite empty", schema.SQLiteBackend, "", false},
		{"none", schema.NoneBackend, "", false},
		{"mysql valid", schema.MySQLBackend, "user:pass@tcp(localhost:3306)/ragdelta", false},
		{"mysql missing tcp", schema.MySQLBackend, "user:pass@localhost/ragdelta", true},
		{"mysql empty", schema.MySQLBackend, "", true},
		{"postgres valid", schema.PostgreSQLBackend, "host=localhost port=5432 user=u password=p dbname=ragdelta", false},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost", true},
		{"postgres empty", schema.PostgreSQLBackend, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.conn)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	assert.Nil(t, ParseList(""))
	assert.Nil(t, ParseList(" , ,"))
	assert.Equal(t, []string{"a", "b"}, ParseList("a,b,a"))
	assert.Equal(t, []string{"x y"}, ParseList("  x y  "))
}

func TestProcessProfilingConfig(t *testing.T) {
	var profile ProfileConfig
	require.NoError(t, ProcessProfilingConfig(&profile, ""))
	assert.False(t, profile.Enabled)

	require.NoError(t, ProcessProfilingConfig(&profile, "ragdelta"))
	assert.True(t, profile.Enabled)
	assert.Equal(t, "ragdelta", profile.Prefix)
}

func TestRevalidateCompare(t *testing.T) {
	dir := t.TempDir()
	seed := uint64(5)
	cfg := &Config{
		ReportsDir: dir,
		Baseline:   "base",
		Treatment:  "rag",
		Models:     []string{"gpt"},
		Alpha:      0.1,
		Bootstrap:  50,
		Seed:       &seed,
	}
	require.NoError(t, RevalidateCompare(cfg))
	assert.Equal(t, DefaultPattern, cfg.Pattern)
	assert.Equal(t, []string{"gpt"}, cfg.Models)
	assert.Empty(t, cfg.Strata)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, uint64(5), *cfg.Seed)

	bad := cfg.Clone()
	bad.Alpha = 1.5
	assert.ErrorContains(t, RevalidateCompare(bad), "alpha")

	bad = cfg.Clone()
	bad.Treatment = "base"
	assert.ErrorContains(t, RevalidateCompare(bad), "must be different")

	bad = cfg.Clone()
	bad.ReportsDir = filepath.Join(dir, "missing")
	assert.ErrorContains(t, RevalidateCompare(bad), "not accessible")
}
