//go:build basic

package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCompareText runs the default text output over the fixture tree.
func TestCompareText(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root)

	output, err := runRagdelta(t, nil, "compare", root, "--seed", "3", "--color", "no", "--width", "200")
	require.NoError(t, err)

	assert.Contains(t, output, "Showing 3 comparisons across 2 strata")
	assert.Contains(t, output, "Comparison completed in")
	assert.Contains(t, output, "History backend: none")
}

// TestCompareCSVFile writes the table to a file and checks its shape.
func TestCompareCSVFile(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root)
	outFile := filepath.Join(t.TempDir(), "deltas.csv")

	_, err := runRagdelta(t, nil, "compare", root, "--output", "csv", "--output-file", outFile)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rank,model,stratum,n")
	assert.Contains(t, string(data), ",gpt,dense,16,")
}

// TestCompareSQLiteHistory records a run and reads it back through history status.
func TestCompareSQLiteHistory(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root)
	dbPath := filepath.Join(t.TempDir(), "history.db")
	history := []string{"--history-backend", "sqlite", "--history-db-connect", dbPath}

	_, err := runRagdelta(t, nil, append([]string{"compare", root}, history...)...)
	require.NoError(t, err)

	output, err := runRagdelta(t, nil, append([]string{"history", "status"}, history...)...)
	require.NoError(t, err)
	assert.Contains(t, output, "History Backend: sqlite")
	assert.Contains(t, output, "Total Runs: 1")
	assert.Contains(t, output, "Total Comparisons: 3")

	_, err = runRagdelta(t, nil, append([]string{"history", "clear"}, history...)...)
	require.NoError(t, err)
	_, statErr := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(statErr))
}

// TestCompareInvalidFlags exits non-zero on bad statistics settings.
func TestCompareInvalidFlags(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root)

	tests := []struct {
		name string
		args []string
	}{
		{"alpha out of range", []string{"--alpha", "1.5"}},
		{"negative bootstrap", []string{"--bootstrap", "-1"}},
		{"bad output", []string{"--output", "xml"}},
		{"missing dir", []string{"--reports-dir", filepath.Join(root, "missing")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"compare"}, tt.args...)
			if tt.name != "missing dir" {
				args = append(args, root)
			}
			_, err := runRagdelta(t, nil, args...)
			assert.Error(t, err)
		})
	}
}
