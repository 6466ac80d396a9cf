package exporter

import "io"

// RowEncoder is the common surface for the export formats (delimited text,
// JSON Lines, Excel, PDF). The pipeline that feeds rows stays agnostic of
// the output format.
type RowEncoder interface {
	// WriteHeader hands the column names to the encoder. Called exactly once,
	// before any row.
	WriteHeader(columns []string) error

	// WriteRow appends a single row of raw scalar values.
	WriteRow(values []any) error

	// Flush writes any buffered output to the underlying writer. Formats
	// that render the whole document at once (delimited text, Excel) do the
	// actual encoding here.
	Flush() error

	// Error returns the first error recorded during encoding, if any.
	Error() error

	// Close flushes and releases resources.
	io.Closer
}
