package exporter

import (
	"fmt"
	"io"

	"tablecast/internal/delimited"
)

// DelimitedOptions carries the per-export control characters. Empty fields
// keep the encoder defaults (comma, double quote, double quote, linefeed).
type DelimitedOptions struct {
	Delimiter  string
	Quote      string
	Escape     string
	Terminator string
	// OmitHeader skips the column-name row. The delimited format never
	// synthesizes a header on its own; the header is simply the first row
	// fed to the table.
	OmitHeader bool
}

// DelimitedEncoder implements RowEncoder for configurable delimited text.
// Rows are buffered into an in-memory table and rendered in one pass on
// Flush, so the output is bit-identical to what the core encoder produces
// for the same table.
type DelimitedEncoder struct {
	w       io.Writer
	opts    DelimitedOptions
	table   delimited.Table
	flushed bool
	err     error
}

// NewDelimitedEncoder creates an encoder that writes the rendered table to w
// on Flush.
func NewDelimitedEncoder(w io.Writer, opts DelimitedOptions) *DelimitedEncoder {
	return &DelimitedEncoder{w: w, opts: opts}
}

// WriteHeader appends the column names as the table's first row, unless
// OmitHeader is set.
func (e *DelimitedEncoder) WriteHeader(columns []string) error {
	if e.err != nil {
		return e.err
	}
	if e.opts.OmitHeader {
		return nil
	}
	row := make(delimited.Row, len(columns))
	for i, col := range columns {
		row[i] = delimited.Str(col)
	}
	e.table = append(e.table, row)
	return nil
}

// WriteRow classifies one row of raw values and appends it to the buffered
// table. Values outside the encodable scalar set are kept as-is and reported
// by Flush with their row position.
func (e *DelimitedEncoder) WriteRow(values []any) error {
	if e.err != nil {
		return e.err
	}
	row := make(delimited.Row, len(values))
	for i, v := range values {
		row[i] = delimited.ValueOf(normalizeScalar(v))
	}
	e.table = append(e.table, row)
	return nil
}

// Flush renders the buffered table and writes it to the underlying writer,
// followed by a final record terminator. Subsequent calls are no-ops; the
// document is written exactly once.
func (e *DelimitedEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	if e.flushed {
		return nil
	}
	e.flushed = true

	enc, err := delimited.New(e.table)
	if err != nil {
		e.err = err
		return err
	}
	if err := e.configure(enc); err != nil {
		e.err = err
		return err
	}

	out, err := enc.Render()
	if err != nil {
		e.err = err
		return err
	}
	if len(out) == 0 {
		return nil
	}

	terminator := e.opts.Terminator
	if terminator == "" {
		terminator = "\n"
	}
	if _, err := io.WriteString(e.w, out+terminator); err != nil {
		e.err = err
		return err
	}
	return nil
}

func (e *DelimitedEncoder) configure(enc *delimited.Encoder) error {
	set := func(apply func(string) error, v, name string) error {
		if v == "" {
			return nil
		}
		if err := apply(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
	if err := set(enc.SetDelimiter, e.opts.Delimiter, "delimiter"); err != nil {
		return err
	}
	if err := set(enc.SetQuote, e.opts.Quote, "quote"); err != nil {
		return err
	}
	if err := set(enc.SetEscape, e.opts.Escape, "escape"); err != nil {
		return err
	}
	return set(enc.SetTerminator, e.opts.Terminator, "terminator")
}

// Error returns the first error recorded by the encoder.
func (e *DelimitedEncoder) Error() error {
	return e.err
}

// Close flushes and satisfies io.Closer.
func (e *DelimitedEncoder) Close() error {
	return e.Flush()
}
