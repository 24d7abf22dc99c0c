package export

import "fmt"

// Format names a register export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat normalises a user supplied format, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// Table is the tabular content of an export. Rows are positional and must match Columns.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// Renderer encodes a table into bytes.
type Renderer interface {
	Render(Table) ([]byte, error)
}

// RendererFor returns the renderer registered for a format.
func RendererFor(f Format) Renderer {
	if f == FormatPDF {
		return NewPDFRenderer()
	}
	return NewCSVRenderer()
}

func validate(t Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("export requires at least one column")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Columns))
		}
	}
	return nil
}
