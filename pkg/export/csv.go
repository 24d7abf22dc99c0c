package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVRenderer writes a header line followed by one line per row.
type CSVRenderer struct{}

// NewCSVRenderer builds a CSV renderer.
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

// Render produces CSV encoded bytes for the table. The title is not part of the output.
func (r *CSVRenderer) Render(t Table) ([]byte, error) {
	if err := validate(t); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}
