package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// excelRowLimit is the hard sheet limit of the xlsx format.
const excelRowLimit = 1048576

// ExcelEncoder implements RowEncoder for .xlsx workbooks through the
// excelize stream writer, which keeps memory flat for large exports.
type ExcelEncoder struct {
	f      *excelize.File
	sw     *excelize.StreamWriter
	w      io.Writer
	rowIdx int
	err    error
}

// NewExcelEncoder creates a workbook with a single sheet and a stream writer
// positioned at the first row.
func NewExcelEncoder(w io.Writer) *ExcelEncoder {
	f := excelize.NewFile()
	sw, err := f.NewStreamWriter("Sheet1")
	if err != nil {
		return &ExcelEncoder{err: err}
	}
	return &ExcelEncoder{f: f, sw: sw, w: w, rowIdx: 1}
}

func (e *ExcelEncoder) WriteHeader(columns []string) error {
	if e.err != nil {
		return e.err
	}
	row := make([]any, len(columns))
	for i, col := range columns {
		row[i] = col
	}
	return e.setRow(row)
}

// WriteRow writes one sheet row. Text cells go through the formula-injection
// guard; numeric cells are passed to excelize natively.
func (e *ExcelEncoder) WriteRow(values []any) error {
	if e.err != nil {
		return e.err
	}

	row := make([]any, len(values))
	for i, v := range values {
		switch normalizeScalar(v).(type) {
		case string, nil:
			row[i] = cellText(v)
		default:
			row[i] = v
		}
	}
	return e.setRow(row)
}

func (e *ExcelEncoder) setRow(row []any) error {
	cell, err := excelize.CoordinatesToCellName(1, e.rowIdx)
	if err != nil {
		e.err = err
		return err
	}
	if err := e.sw.SetRow(cell, row); err != nil {
		e.err = err
		return err
	}
	e.rowIdx++
	if e.rowIdx > excelRowLimit {
		e.err = fmt.Errorf("excel row limit exceeded (%d rows)", excelRowLimit)
		return e.err
	}
	return nil
}

// Flush finalizes the stream writer and writes the workbook body.
func (e *ExcelEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	if err := e.sw.Flush(); err != nil {
		e.err = err
		return err
	}
	return e.f.Write(e.w)
}

func (e *ExcelEncoder) Error() error {
	return e.err
}

func (e *ExcelEncoder) Close() error {
	if e.f != nil {
		_ = e.f.Close()
	}
	return nil
}
