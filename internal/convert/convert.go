// Package convert turns the admission spreadsheet into the JSON array the dashboard loads.
// Cell text is copied verbatim: blank cells become null and no value is ever filled in.
package convert

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for inputs that are neither spreadsheets nor CSV.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Table is a header row plus data rows, every row padded to the widest row.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ReadXLSX reads sheet from an .xlsx workbook. An empty sheet name selects the first sheet.
func ReadXLSX(r io.Reader, sheet string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	// Raw values keep the stored number instead of its display format.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return newTable(rows)
}

// ReadCSV reads a comma separated file whose first record is the header.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return newTable(records)
}

func newTable(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, errors.New("input has no header row")
	}
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	// Cells past the last header are kept under positional column names.
	header := make([]string, width)
	copy(header, rows[0])

	table := &Table{Columns: headerNames(header), Rows: make([][]string, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		padded := make([]string, len(table.Columns))
		copy(padded, row)
		table.Rows = append(table.Rows, padded)
	}
	return table, nil
}

// headerNames trims header cells, names blank ones by position and suffixes duplicates.
func headerNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		names[i] = name
	}
	return names
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// WriteJSON writes the table as a JSON array of objects, one object per line, keys in
// column order. Empty cells are written as null.
func WriteJSON(w io.Writer, table *Table) error {
	keys := make([][]byte, len(table.Columns))
	for i, column := range table.Columns {
		key, err := json.Marshal(column)
		if err != nil {
			return err
		}
		keys[i] = key
	}

	buf := &bytes.Buffer{}
	buf.WriteString("[")
	for i, row := range table.Rows {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n{")
		for j, cell := range row {
			if j > 0 {
				buf.WriteString(",")
			}
			buf.Write(keys[j])
			buf.WriteString(":")
			if cell == "" {
				buf.WriteString("null")
				continue
			}
			value, err := json.Marshal(cell)
			if err != nil {
				return err
			}
			buf.Write(value)
		}
		buf.WriteString("}")
	}
	buf.WriteString("\n]\n")
	_, err := w.Write(buf.Bytes())
	return err
}

// ReadFile picks a reader by file extension.
func ReadFile(path, sheet string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(f, sheet)
	case ".csv":
		return ReadCSV(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Convert reads input and replaces output with its JSON rendering. The output is written
// to a temporary file first so a failed run leaves the previous dataset in place.
func Convert(input, output, sheet string) (int, error) {
	table, err := ReadFile(input, sheet)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".ppdb-*.json")
	if err != nil {
		return 0, fmt.Errorf("create temporary output: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := WriteJSON(tmp, table); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("write json: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return 0, fmt.Errorf("replace %s: %w", output, err)
	}
	return len(table.Rows), nil
}
