// Package delimited renders in-memory tables to RFC 4180-style delimited
// text. All four control characters (field delimiter, quote, escape, record
// terminator) are configurable independently, including the case where the
// escape character differs from the quote character.
//
// One documented departure from RFC 4180 is kept on purpose: the default
// record terminator is a bare linefeed, not CRLF.
package delimited

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Row is an ordered sequence of scalar cells.
type Row []Value

// Table holds row slots. A slot normally contains a Row (or a raw []any that
// is classified on the fly); Render reports a structural error for anything
// else, naming the slot by its table position.
type Table []any

// Encoder renders one table with one set of control characters.
//
// Configuration is per-instance state and the only mutable state there is:
// Render reads the table and the current configuration and is repeatable and
// idempotent. An Encoder is safe for repeated use but not for mutating the
// configuration concurrently with a Render or ValidateShape call.
type Encoder struct {
	table      Table
	delimiter  rune
	quote      rune
	escape     rune
	terminator rune
}

// New builds an Encoder over table with the default control characters
// (comma, double quote, double quote, linefeed). The table is borrowed, not
// copied; it must not be mutated while the encoder is in use.
//
// Only the top level is checked here. Row and cell shape is deliberately
// deferred to ValidateShape or Render so that large tables are not walked
// twice.
func New(table any) (*Encoder, error) {
	rows, err := coerceTable(table)
	if err != nil {
		return nil, err
	}
	return &Encoder{
		table:      rows,
		delimiter:  ',',
		quote:      '"',
		escape:     '"',
		terminator: '\n',
	}, nil
}

func coerceTable(table any) (Table, error) {
	switch t := table.(type) {
	case Table:
		return t, nil
	case []any:
		return Table(t), nil
	case []Row:
		rows := make(Table, len(t))
		for i, r := range t {
			rows[i] = r
		}
		return rows, nil
	case [][]Value:
		rows := make(Table, len(t))
		for i, r := range t {
			rows[i] = Row(r)
		}
		return rows, nil
	case nil:
		return nil, ErrInvalidInput
	default:
		return nil, fmt.Errorf("%w, got %T", ErrInvalidInput, table)
	}
}

// SetDelimiter sets the field separator. The argument must be exactly one
// character.
func (e *Encoder) SetDelimiter(s string) error {
	return setControl(&e.delimiter, s)
}

// SetQuote sets the encapsulation character used to wrap fields that contain
// control characters.
func (e *Encoder) SetQuote(s string) error {
	return setControl(&e.quote, s)
}

// SetEscape sets the character that prefixes an embedded quote. It may equal
// the quote character (the RFC 4180 doubled-quote convention) or differ from
// it.
func (e *Encoder) SetEscape(s string) error {
	return setControl(&e.escape, s)
}

// SetTerminator sets the record separator.
func (e *Encoder) SetTerminator(s string) error {
	return setControl(&e.terminator, s)
}

func setControl(dst *rune, s string) error {
	if utf8.RuneCountInString(s) != 1 {
		return fmt.Errorf("%w, got %q", ErrInvalidConfig, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	*dst = r
	return nil
}

// ValidateShape walks the whole table and reports every malformed row slot
// and every cell outside the encodable scalar set, one diagnostic per
// finding. It never fails and never short-circuits; an empty result means
// Render cannot hit a structural or value error on this table.
//
// ValidateShape shares no state with Render. Callers may use either alone:
// pre-screen with ValidateShape and treat diagnostics, or skip it and handle
// the render-time errors.
func (e *Encoder) ValidateShape() []string {
	var diags []string
	for i, slot := range e.table {
		row, ok := asRow(slot)
		if !ok {
			diags = append(diags, fmt.Sprintf("row %d: not a sequence of values", i))
			continue
		}
		for j, v := range row {
			if v.kind == KindOther {
				diags = append(diags, fmt.Sprintf("row %d: cell %d holds unsupported kind %s", i, j, v.str))
			}
		}
	}
	return diags
}

// Render produces the delimited text for the whole table: cells joined with
// the delimiter, rows joined with the terminator, no terminator after the
// last row. An empty table renders to the empty string. Rows of differing
// lengths are rendered as-is, each with its own cell count.
//
// Render fails on the first malformed row slot (ErrStructural) or
// non-encodable cell (ErrInvalidValue); both are wrapped with the offending
// row's position in the table.
func (e *Encoder) Render() (string, error) {
	var sb strings.Builder
	for i, slot := range e.table {
		row, ok := asRow(slot)
		if !ok {
			return "", fmt.Errorf("row %d: %w, got %T", i, ErrStructural, slot)
		}
		if i > 0 {
			sb.WriteRune(e.terminator)
		}
		for j, v := range row {
			if j > 0 {
				sb.WriteRune(e.delimiter)
			}
			cell, err := e.formatValue(v)
			if err != nil {
				return "", fmt.Errorf("row %d: %w", i, err)
			}
			sb.WriteString(cell)
		}
	}
	return sb.String(), nil
}

// asRow accepts the row shapes a Table slot may hold. Raw []any rows are
// classified cell by cell; anything that is not a sequence is rejected.
func asRow(slot any) (Row, bool) {
	switch r := slot.(type) {
	case Row:
		return r, true
	case []Value:
		return Row(r), true
	case []any:
		return RowOf(r), true
	default:
		return nil, false
	}
}

// RowOf classifies a raw slice of Go values into a Row via ValueOf.
func RowOf(vals []any) Row {
	row := make(Row, len(vals))
	for i, v := range vals {
		row[i] = ValueOf(v)
	}
	return row
}

// formatValue renders one cell. Cells that need no quoting are emitted
// byte-for-byte (null as the empty field, integers as decimal text).
//
// Quoted cells go through two ordered passes:
//
//  1. if the escape character differs from the quote character, every
//     embedded escape character is doubled;
//  2. every embedded quote character is prefixed with the escape character.
//
// The order matters. Doubling the escape character first means pass 2 never
// reprocesses characters introduced by pass 1, and when escape == quote
// pass 1 is a no-op and pass 2 alone produces the doubled-quote form.
func (e *Encoder) formatValue(v Value) (string, error) {
	quoted, err := e.needsQuoting(v)
	if err != nil {
		return "", err
	}
	text := v.text()
	if !quoted {
		return text, nil
	}
	if e.escape != e.quote && strings.ContainsRune(text, e.escape) {
		text = strings.ReplaceAll(text, string(e.escape), string(e.escape)+string(e.escape))
	}
	text = strings.ReplaceAll(text, string(e.quote), string(e.escape)+string(e.quote))
	return string(e.quote) + text + string(e.quote), nil
}

// needsQuoting decides whether a cell must be wrapped in the quote
// character: only plain strings that contain at least one of the four
// control characters. Null, integer and numeric-string cells never qualify.
// Anything else is not encodable.
func (e *Encoder) needsQuoting(v Value) (bool, error) {
	switch v.kind {
	case KindNull, KindInteger, KindNumericString:
		return false, nil
	case KindString:
		controls := string([]rune{e.delimiter, e.quote, e.escape, e.terminator})
		return strings.ContainsAny(v.str, controls), nil
	default:
		return false, fmt.Errorf("%w: %s", ErrInvalidValue, v.str)
	}
}
