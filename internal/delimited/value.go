package delimited

import (
	"fmt"
	"strconv"
)

// Kind identifies which member of the closed scalar set a Value holds.
type Kind uint8

const (
	// KindNull renders as an empty field.
	KindNull Kind = iota
	// KindInteger renders as decimal text and is never quoted.
	KindInteger
	// KindNumericString is text that parses as a number. Numeric text cannot
	// contain control characters, so it is emitted verbatim without quoting.
	KindNumericString
	// KindString is arbitrary text, quoted only when it contains a control
	// character.
	KindString
	// KindOther marks anything outside the encodable set (booleans, nested
	// sequences, maps, ...). Rendering a KindOther value always fails.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindNumericString:
		return "numeric-string"
	case KindString:
		return "string"
	default:
		return "other"
	}
}

// Value is a single table cell. The zero Value is the null cell.
type Value struct {
	kind Kind
	num  int64
	// str holds the text payload for string kinds. For KindOther it holds
	// the Go type name of the rejected value, used in diagnostics.
	str string
}

// Null returns the null cell. It renders as an empty field.
func Null() Value {
	return Value{kind: KindNull}
}

// Int returns an integer cell.
func Int(n int64) Value {
	return Value{kind: KindInteger, num: n}
}

// Str returns a text cell. Numeric-looking text is classified as a
// numeric-string, which never triggers quoting.
func Str(s string) Value {
	if isNumericText(s) {
		return Value{kind: KindNumericString, str: s}
	}
	return Value{kind: KindString, str: s}
}

// ValueOf classifies an arbitrary Go value into the closed scalar set.
// Unsupported kinds are not rejected here; they become KindOther cells that
// surface as diagnostics in ValidateShape and as errors in Render.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case string:
		return Str(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return Value{kind: KindNumericString, str: strconv.FormatUint(uint64(x), 10)}
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		return Value{kind: KindNumericString, str: strconv.FormatUint(x, 10)}
	case float32:
		return Value{kind: KindNumericString, str: strconv.FormatFloat(float64(x), 'f', -1, 32)}
	case float64:
		// JSON numbers decode as float64; format matches the text a caller
		// would have written for the same number.
		return Value{kind: KindNumericString, str: strconv.FormatFloat(x, 'f', -1, 64)}
	default:
		return Value{kind: KindOther, str: fmt.Sprintf("%T", v)}
	}
}

// Kind reports which member of the scalar set the cell holds.
func (v Value) Kind() Kind {
	return v.kind
}

// text is the direct, unescaped rendering of the cell.
func (v Value) text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindInteger:
		return strconv.FormatInt(v.num, 10)
	default:
		return v.str
	}
}

// isNumericText reports whether s is decimal numeric text: an optional sign,
// digits with at most one decimal point, and an optional exponent.
func isNumericText(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits, dot := 0, false
	for ; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			digits++
		case s[i] == '.' && !dot:
			dot = true
		case (s[i] == 'e' || s[i] == 'E') && digits > 0:
			return isExponentText(s[i+1:])
		default:
			return false
		}
	}
	return digits > 0
}

func isExponentText(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if i == len(s) {
		return false
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
