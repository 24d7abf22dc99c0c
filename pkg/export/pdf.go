package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth = 277.0
	pdfRowHeight = 7.0
)

// PDFRenderer lays the table out on landscape A4 pages, repeating the header on each page.
type PDFRenderer struct{}

// NewPDFRenderer constructs a PDF renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render creates a PDF document with the table title and body.
func (r *PDFRenderer) Render(t Table) ([]byte, error) {
	if err := validate(t); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	colWidth := pdfPageWidth / float64(len(t.Columns))
	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range t.Columns {
			pdf.CellFormat(colWidth, 8, tr(col), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Arial", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	if t.Title != "" {
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 10, tr(t.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}
	header()

	for _, row := range t.Rows {
		for _, cell := range row {
			pdf.CellFormat(colWidth, pdfRowHeight, tr(cell), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(t.Rows) == 0 {
		pdf.CellFormat(pdfPageWidth, pdfRowHeight, "No records", "1", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
