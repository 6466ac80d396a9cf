package exporter

import (
	"database/sql"
	"strconv"
	"time"
)

// normalizeScalar reduces SQL driver and JSON values to the scalar kinds the
// delimited core accepts: nil, integers, numeric text and plain text.
// Unknown types pass through untouched so the core can reject them with a
// positional error instead of this layer guessing.
func normalizeScalar(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case sql.RawBytes:
		return string(x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return v
	}
}

// cellText renders a scalar to display text for the spreadsheet-bound
// encoders (Excel, PDF). Strings that a spreadsheet would evaluate as a
// formula get a leading apostrophe (CSV/formula injection mitigation). The
// delimited encoder does NOT use this: its contract is to emit values
// verbatim.
func cellText(v any) string {
	var s string
	switch x := normalizeScalar(v).(type) {
	case nil:
		s = "NULL"
	case string:
		s = x
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}

	if len(s) > 0 {
		switch s[0] {
		case '=', '+', '-', '@':
			s = "'" + s
		}
	}
	return s
}
