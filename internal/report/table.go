package report

import (
	"strings"

	"github.com/huangsam/ragdelta/internal/contract"
	"github.com/huangsam/ragdelta/schema"
	"github.com/rotisserie/eris"
)

// table is the format-neutral form of a report: a header and string cells.
type table struct {
	header  []string
	records [][]string
}

// columnIndex holds header positions; exemption is -1 when the column is absent.
type columnIndex struct {
	itemPath  int
	status    int
	exemption int
}

// resolve finds the configured columns in the header. Matching ignores case
// and surrounding space.
func (t *table) resolve(columns contract.ColumnConfig) (columnIndex, error) {
	find := func(name string) int {
		for i, h := range t.header {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(name)) {
				return i
			}
		}
		return -1
	}

	idx := columnIndex{
		itemPath:  find(columns.ItemPath),
		status:    find(columns.Status),
		exemption: find(columns.Exemption),
	}
	var missing []string
	if idx.itemPath < 0 {
		missing = append(missing, columns.ItemPath)
	}
	if idx.status < 0 {
		missing = append(missing, columns.Status)
	}
	if len(missing) > 0 {
		return idx, eris.Wrapf(ErrSchema, "missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// results converts the records into test case results.
func (t *table) results(columns contract.ColumnConfig) ([]schema.TestCaseResult, error) {
	idx, err := t.resolve(columns)
	if err != nil {
		return nil, err
	}

	rows := make([]schema.TestCaseResult, 0, len(t.records))
	for i, rec := range t.records {
		if isBlank(rec) {
			continue
		}
		itemPath := strings.TrimSpace(cell(rec, idx.itemPath))
		if itemPath == "" {
			return nil, eris.Wrapf(ErrSchema, "record %d has an empty %s", i+1, columns.ItemPath)
		}
		row := schema.TestCaseResult{
			ItemPath: itemPath,
			Status:   schema.TestStatus(strings.ToLower(strings.TrimSpace(cell(rec, idx.status)))),
		}
		if idx.exemption >= 0 {
			if marker := strings.TrimSpace(cell(rec, idx.exemption)); marker != "" {
				row.Exemption = &marker
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// cell returns the i-th value of a record, or "" when the record is short.
func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// isBlank reports whether every value of a record is empty.
func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
