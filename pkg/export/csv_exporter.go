package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is an ordered tabular export body. Each row carries one cell per column.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (t Table) validate(kind string) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("%s requires at least one column", kind)
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("%s row %d has %d cells, want %d", kind, i, len(row), len(t.Columns))
		}
	}
	return nil
}

// CSVExporter renders tables as CSV.
type CSVExporter struct {
	comma rune
}

// NewCSVExporter builds a comma separated exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{comma: ','}
}

// Render produces CSV encoded bytes for the table.
func (e *CSVExporter) Render(table Table) ([]byte, error) {
	if err := table.validate("csv"); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	writer.Comma = e.comma
	if err := writer.Write(table.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	if err := writer.WriteAll(table.Rows); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}
