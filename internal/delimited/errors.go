package delimited

import "errors"

var (
	// ErrInvalidInput is returned by New when the argument is not a
	// two-dimensional sequence.
	ErrInvalidInput = errors.New("delimited: table must be a two-dimensional sequence")

	// ErrInvalidConfig is returned by the control-character setters when the
	// argument is not exactly one character. The previous setting is kept.
	ErrInvalidConfig = errors.New("delimited: control character must be exactly one character")

	// ErrStructural is returned by Render when a row slot does not hold a
	// sequence of values. The wrapping error names the row by its position
	// in the table.
	ErrStructural = errors.New("delimited: row is not a sequence of values")

	// ErrInvalidValue is returned by Render when a cell holds something
	// outside the encodable scalar set.
	ErrInvalidValue = errors.New("delimited: value kind is not encodable")
)
