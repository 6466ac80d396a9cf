package exporter

import (
	"encoding/json"
	"io"
	"strconv"
)

// JSONEncoder implements RowEncoder for JSON Lines output: one object per
// row, column names as keys.
type JSONEncoder struct {
	w       io.Writer
	columns []string
	err     error
}

// NewJSONEncoder creates a new JSON Lines encoder.
func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

// WriteHeader captures the column names. JSON Lines has no header row; the
// names become object keys.
func (e *JSONEncoder) WriteHeader(columns []string) error {
	e.columns = columns
	return nil
}

func (e *JSONEncoder) WriteRow(values []any) error {
	if e.err != nil {
		return e.err
	}

	obj := make(map[string]any, len(values))
	for i, v := range values {
		name := "column_" + strconv.Itoa(i)
		if i < len(e.columns) {
			name = e.columns[i]
		}
		if b, ok := v.([]byte); ok {
			obj[name] = string(b)
		} else {
			obj[name] = v
		}
	}

	data, err := json.Marshal(obj)
	if err != nil {
		e.err = err
		return err
	}
	data = append(data, '\n')
	if _, err := e.w.Write(data); err != nil {
		e.err = err
		return err
	}
	return nil
}

func (e *JSONEncoder) Flush() error {
	return e.err
}

func (e *JSONEncoder) Error() error {
	return e.err
}

func (e *JSONEncoder) Close() error {
	return e.Flush()
}
