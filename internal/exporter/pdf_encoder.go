package exporter

import (
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

// PDFEncoder implements RowEncoder as a simple landscape table grid.
// PDF rendering is far heavier than the text formats; it exists for small
// human-facing exports, not bulk data.
type PDFEncoder struct {
	pdf *fpdf.Fpdf
	w   io.Writer
	err error
}

// NewPDFEncoder creates an A4 landscape document with a default grid font.
func NewPDFEncoder(w io.Writer) *PDFEncoder {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 10)
	pdf.AddPage()
	return &PDFEncoder{pdf: pdf, w: w}
}

func (e *PDFEncoder) WriteHeader(columns []string) error {
	if e.err != nil {
		return e.err
	}
	e.pdf.SetFont("Arial", "B", 10)
	colWidth := e.columnWidth(len(columns))
	for _, col := range columns {
		e.pdf.CellFormat(colWidth, 7, col, "1", 0, "C", false, 0, "")
	}
	e.pdf.Ln(-1)
	e.pdf.SetFont("Arial", "", 10)
	return nil
}

func (e *PDFEncoder) WriteRow(values []any) error {
	if e.err != nil {
		return e.err
	}
	colWidth := e.columnWidth(len(values))
	for _, v := range values {
		text := cellText(v)
		// The injection guard apostrophe is a spreadsheet concern; strip it
		// for display.
		text = strings.TrimPrefix(text, "'")
		e.pdf.CellFormat(colWidth, 7, text, "1", 0, "L", false, 0, "")
	}
	e.pdf.Ln(-1)
	return nil
}

// columnWidth distributes the usable page width equally across n columns.
func (e *PDFEncoder) columnWidth(n int) float64 {
	pageWidth, _ := e.pdf.GetPageSize()
	left, _, right, _ := e.pdf.GetMargins()
	if n == 0 {
		n = 1
	}
	return (pageWidth - left - right) / float64(n)
}

// Flush writes the finished document.
func (e *PDFEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	if err := e.pdf.Output(e.w); err != nil {
		e.err = err
		return err
	}
	return nil
}

func (e *PDFEncoder) Error() error {
	if e.err != nil {
		return e.err
	}
	return e.pdf.Error()
}

func (e *PDFEncoder) Close() error {
	return nil
}
