package report

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
)

// readCSV reads a comma-separated report with a header line.
func readCSV(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "cannot open %s", path)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(ErrSchema, "%s: %v", path, err)
	}
	if len(records) == 0 {
		return nil, eris.Wrapf(ErrSchema, "%s: no header", path)
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return &table{header: header, records: records[1:]}, nil
}

// readJSON reads either a JSON array of objects or one object per line.
func readJSON(path string) (*table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "cannot read %s", path)
	}

	var objects []map[string]any
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &objects); err != nil {
			return nil, eris.Wrapf(ErrSchema, "%s: %v", path, err)
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(trimmed))
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			text := bytes.TrimSpace(scanner.Bytes())
			if len(text) == 0 {
				continue
			}
			var obj map[string]any
			if err := json.Unmarshal(text, &obj); err != nil {
				return nil, eris.Wrapf(ErrSchema, "%s line %d: %v", path, line, err)
			}
			objects = append(objects, obj)
		}
		if err := scanner.Err(); err != nil {
			return nil, eris.Wrapf(err, "cannot scan %s", path)
		}
	}

	// The header is the union of keys in first-seen order.
	var header []string
	pos := make(map[string]int)
	for _, obj := range objects {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if _, ok := pos[k]; !ok {
				pos[k] = len(header)
				header = append(header, k)
			}
		}
	}

	records := make([][]string, len(objects))
	for i, obj := range objects {
		rec := make([]string, len(header))
		for k, v := range obj {
			rec[pos[k]] = jsonString(v)
		}
		records[i] = rec
	}
	return &table{header: header, records: records}, nil
}

// jsonString renders a decoded JSON value as a cell.
func jsonString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}

// readXLSX reads the first sheet of a workbook.
func readXLSX(path string) (*table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(ErrSchema, "%s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, eris.Wrapf(ErrSchema, "%s: workbook has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, eris.Wrapf(ErrSchema, "%s: %v", path, err)
	}
	if len(rows) == 0 {
		return nil, eris.Wrapf(ErrSchema, "%s: no header", path)
	}
	return &table{header: rows[0], records: rows[1:]}, nil
}

// readParquet reads every row of a parquet file. Nested columns are named by
// their dotted path.
func readParquet(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "cannot open %s", path)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, eris.Wrapf(err, "cannot stat %s", path)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, eris.Wrapf(ErrSchema, "%s: %v", path, err)
	}

	reader := parquet.NewReader(pf)
	defer func() { _ = reader.Close() }()

	var header []string
	for _, col := range reader.Schema().Columns() {
		header = append(header, strings.Join(col, "."))
	}

	var records [][]string
	buf := make([]parquet.Row, 128)
	for {
		n, err := reader.ReadRows(buf)
		for _, row := range buf[:n] {
			rec := make([]string, len(header))
			for _, v := range row {
				col := v.Column()
				if col < 0 || col >= len(rec) || v.IsNull() {
					continue
				}
				rec[col] = parquetString(v)
			}
			records = append(records, rec)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(ErrSchema, "%s: %v", path, err)
		}
		if n == 0 {
			break
		}
	}
	return &table{header: header, records: records}, nil
}

// parquetString renders a leaf value as a cell.
func parquetString(v parquet.Value) string {
	switch v.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	case parquet.Boolean:
		if v.Boolean() {
			return "true"
		}
		return "false"
	default:
		return v.String()
	}
}
