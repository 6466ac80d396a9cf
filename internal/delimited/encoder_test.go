package delimited

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustEncoder(t *testing.T, table any) *Encoder {
	t.Helper()
	enc, err := New(table)
	require.NoError(t, err)
	return enc
}

func TestNewRejectsNonSequence(t *testing.T) {
	for _, input := range []any{nil, "scalar", 42, map[string]any{"a": 1}} {
		_, err := New(input)
		require.ErrorIs(t, err, ErrInvalidInput, "input %#v", input)
	}
}

func TestRenderEmptyTable(t *testing.T) {
	enc := mustEncoder(t, Table{})
	out, err := enc.Render()
	require.NoError(t, err)
	require.Equal(t, "", out)
}

func TestRenderSingleNumericCell(t *testing.T) {
	enc := mustEncoder(t, []Row{{Int(42)}})
	out, err := enc.Render()
	require.NoError(t, err)
	require.Equal(t, "42", out)
}

func TestRenderDefaultConfiguration(t *testing.T) {
	enc := mustEncoder(t, []Row{
		{Str("a"), Str("b,c")},
		{Str("d"), Str("e\"f")},
	})
	out, err := enc.Render()
	require.NoError(t, err)
	require.Equal(t, "a,\"b,c\"\nd,\"e\"\"f\"", out)
}

func TestRenderMixedRowLengths(t *testing.T) {
	enc := mustEncoder(t, []Row{
		{Str("x")},
		{Str("y"), Str("z")},
	})
	out, err := enc.Render()
	require.NoError(t, err)
	require.Equal(t, "x\ny,z", out)
}

func TestRenderPlainStringsVerbatim(t *testing.T) {
	// No control characters, so every cell comes back byte-for-byte,
	// leading and trailing whitespace included.
	cells := []string{"plain", "  padded  ", "tab\there", "ünïcödé"}
	row := make(Row, len(cells))
	for i, c := range cells {
		row[i] = Value{kind: KindString, str: c}
	}
	enc := mustEncoder(t, []Row{row})
	enc.SetDelimiter("|")
	out, err := enc.Render()
	require.NoError(t, err)
	require.Equal(t, "plain|  padded  |tab\there|ünïcödé", out)
}

func TestRenderNullAsEmptyField(t *testing.T) {
	enc := mustEncoder(t, []Row{{Str("a"), Null(), Str("c")}})
	out, err := enc.Render()
	require.NoError(t, err)
	require.Equal(t, "a,,c", out)
}

func TestRenderQuoteDoubling(t *testing.T) {
	// Default configuration: quote == escape == '"'. Every embedded quote
	// must appear doubled and the cell must be wrapped.
	enc := mustEncoder(t, []Row{{Str("he said \"hi\" twice \"")}})
	out, err := enc.Render()
	require.NoError(t, err)
	require.Equal(t, "\"he said \"\"hi\"\" twice \"\"\"", out)
}

func TestRenderEscapeDiffersFromQuote(t *testing.T) {
	enc := mustEncoder(t, []Row{{Str(`a"b\c`)}})
	require.NoError(t, enc.SetEscape(`\`))
	out, err := enc.Render()
	require.NoError(t, err)
	// Backslash doubled first, then the quote prefixed, then wrapped.
	require.Equal(t, `"a\"b\\c"`, out)
}

func TestRenderEscapePassOrdering(t *testing.T) {
	// With escape '\', the input `x\"y` must double the backslash before
	// the quote pass runs; merging or reversing the passes would escape
	// characters introduced by the other pass.
	enc := mustEncoder(t, []Row{{Str(`x\"y`)}})
	require.NoError(t, enc.SetEscape(`\`))
	out, err := enc.Render()
	require.NoError(t, err)
	require.Equal(t, `"x\\\"y"`, out)
}

func TestRenderCustomDelimiterAndTerminator(t *testing.T) {
	enc := mustEncoder(t, []Row{
		{Str("a;b"), Str("c")},
		{Str("d"), Str("e")},
	})
	require.NoError(t, enc.SetDelimiter(";"))
	require.NoError(t, enc.SetTerminator("\r"))
	out, err := enc.Render()
	require.NoError(t, err)
	require.Equal(t, "\"a;b\";c\rd;e", out)
}

func TestRenderTerminatorInsideCellForcesQuoting(t *testing.T) {
	enc := mustEncoder(t, []Row{{Str("two\nlines"), Str("one")}})
	out, err := enc.Render()
	require.NoError(t, err)
	require.Equal(t, "\"two\nlines\",one", out)
}

func TestRenderNumericStringNeverQuoted(t *testing.T) {
	// Numeric text is emitted verbatim even when a control character could
	// match one of its characters.
	enc := mustEncoder(t, []Row{{Str("-12.5"), Str("3e10")}})
	require.NoError(t, enc.SetDelimiter("."))
	out, err := enc.Render()
	require.NoError(t, err)
	require.Equal(t, "-12.5.3e10", out)
}

func TestRenderStructuralError(t *testing.T) {
	enc := mustEncoder(t, Table{
		Row{Str("ok")},
		"not-a-row",
	})
	_, err := enc.Render()
	require.ErrorIs(t, err, ErrStructural)
	// The table position identifies the bad slot, not any per-row cursor.
	require.Contains(t, err.Error(), "row 1")
}

func TestRenderInvalidValue(t *testing.T) {
	enc := mustEncoder(t, Table{
		[]any{"fine", 1},
		[]any{"fine", true},
	})
	_, err := enc.Render()
	require.ErrorIs(t, err, ErrInvalidValue)
	require.Contains(t, err.Error(), "row 1")
	require.Contains(t, err.Error(), "bool")
}

func TestRenderClassifiesRawRows(t *testing.T) {
	enc := mustEncoder(t, []any{
		[]any{nil, 7, "x,y", "12"},
	})
	out, err := enc.Render()
	require.NoError(t, err)
	require.Equal(t, ",7,\"x,y\",12", out)
}

func TestRenderIsIdempotent(t *testing.T) {
	enc := mustEncoder(t, []Row{
		{Str("a"), Str("b\"c")},
		{Int(-3), Null()},
	})
	first, err := enc.Render()
	require.NoError(t, err)
	second, err := enc.Render()
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSettersRejectBadLengths(t *testing.T) {
	enc := mustEncoder(t, []Row{{Str("a|b")}})
	require.NoError(t, enc.SetDelimiter("|"))

	for _, bad := range []string{"", "ab", ",,"} {
		require.ErrorIs(t, enc.SetDelimiter(bad), ErrInvalidConfig, "input %q", bad)
		require.ErrorIs(t, enc.SetQuote(bad), ErrInvalidConfig, "input %q", bad)
		require.ErrorIs(t, enc.SetEscape(bad), ErrInvalidConfig, "input %q", bad)
		require.ErrorIs(t, enc.SetTerminator(bad), ErrInvalidConfig, "input %q", bad)
	}

	// The rejected calls must leave the previous delimiter in effect.
	out, err := enc.Render()
	require.NoError(t, err)
	require.Equal(t, "\"a|b\"", out)
}

func TestSettersAcceptMultibyteRunes(t *testing.T) {
	enc := mustEncoder(t, []Row{{Str("a"), Str("b")}})
	require.NoError(t, enc.SetDelimiter("§"))
	out, err := enc.Render()
	require.NoError(t, err)
	require.Equal(t, "a§b", out)
}

func TestValidateShapeWellFormed(t *testing.T) {
	enc := mustEncoder(t, []Row{
		{Int(1), Str("ok")},
		{Null(), Str("also ok")},
	})
	require.Empty(t, enc.ValidateShape())
}

func TestValidateShapeReportsBadRow(t *testing.T) {
	enc := mustEncoder(t, Table{
		[]any{1, "ok"},
		"not-a-row",
	})
	diags := enc.ValidateShape()
	require.Len(t, diags, 1)
	require.Contains(t, diags[0], "row 1")
}

func TestValidateShapeReportsEveryFinding(t *testing.T) {
	enc := mustEncoder(t, Table{
		[]any{true, "ok", false},
		42,
		[]any{map[string]any{}},
	})
	diags := enc.ValidateShape()
	require.Len(t, diags, 4)
	require.Contains(t, diags[0], "row 0")
	require.Contains(t, diags[0], "bool")
	require.Contains(t, diags[1], "row 0")
	require.Contains(t, diags[2], "row 1")
	require.Contains(t, diags[2], "not a sequence")
	require.Contains(t, diags[3], "row 2")
}

func TestValidateShapeDoesNotAffectRender(t *testing.T) {
	enc := mustEncoder(t, Table{"bad"})
	require.Len(t, enc.ValidateShape(), 1)
	_, err := enc.Render()
	require.ErrorIs(t, err, ErrStructural)
}

func TestFormatValueIdentityForPlainStrings(t *testing.T) {
	enc := mustEncoder(t, Table{})
	for _, s := range []string{"alpha", "with space", "trailing ", " leading", "mixed#$%&"} {
		got, err := enc.formatValue(Value{kind: KindString, str: s})
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
}

func TestNeedsQuotingChecksAllFourControls(t *testing.T) {
	enc := mustEncoder(t, Table{})
	require.NoError(t, enc.SetDelimiter(";"))
	require.NoError(t, enc.SetQuote("'"))
	require.NoError(t, enc.SetEscape("\\"))
	require.NoError(t, enc.SetTerminator("\r"))

	cases := []struct {
		in   string
		want bool
	}{
		{"plain", false},
		{"a;b", true},
		{"a'b", true},
		{"a\\b", true},
		{"a\rb", true},
		{"a,b", false}, // the default delimiter is no longer special
	}
	for _, tc := range cases {
		got, err := enc.needsQuoting(Value{kind: KindString, str: tc.in})
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "input %q", tc.in)
	}
}
