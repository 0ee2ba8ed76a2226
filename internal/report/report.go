// Package report locates raw test reports on disk and loads their rows.
package report

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/ragdelta/internal/contract"
	"github.com/huangsam/ragdelta/schema"
	"github.com/rotisserie/eris"
)

var (
	// ErrMissingInput is returned when a report file does not exist.
	ErrMissingInput = eris.New("missing report file")

	// ErrSchema is returned when a report lacks a required column or is malformed.
	ErrSchema = eris.New("invalid report schema")
)

// FileSource serves reports laid out under a root directory by a Locator.
type FileSource struct {
	locator Locator
	columns contract.ColumnConfig
}

var _ contract.ReportSource = &FileSource{} // Compile-time check

// NewFileSource returns a source for the reports dir, pattern and columns of cfg.
func NewFileSource(cfg *contract.Config) *FileSource {
	return &FileSource{
		locator: Locator{Root: cfg.ReportsDir, Pattern: cfg.Pattern},
		columns: cfg.Columns,
	}
}

// Groups discovers every (model, stratum) pair with at least one report.
func (s *FileSource) Groups(ctx context.Context) ([]schema.GroupKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.locator.Discover()
}

// Load reads one condition's report for a group.
func (s *FileSource) Load(ctx context.Context, key schema.GroupKey, condition string) ([]schema.TestCaseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(s.locator.Path(key, condition), s.columns)
}

// LoadFile reads a report, picking the format from the file extension.
func LoadFile(path string, columns contract.ColumnConfig) ([]schema.TestCaseResult, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(ErrMissingInput, "%s", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "cannot stat %s", path)
	}
	if info.IsDir() {
		return nil, eris.Wrapf(ErrMissingInput, "%s is a directory", path)
	}

	var tbl *table
	switch schema.ReportFormat(strings.ToLower(filepath.Ext(path))) {
	case schema.CSVReport:
		tbl, err = readCSV(path)
	case schema.JSONReport, schema.JSONLReport:
		tbl, err = readJSON(path)
	case schema.XLSXReport:
		tbl, err = readXLSX(path)
	case schema.ParquetReport:
		tbl, err = readParquet(path)
	default:
		return nil, eris.Errorf("unsupported report format: %s", path)
	}
	if err != nil {
		return nil, err
	}

	rows, err := tbl.results(columns)
	if err != nil {
		return nil, eris.Wrapf(err, "%s", path)
	}
	return rows, nil
}
