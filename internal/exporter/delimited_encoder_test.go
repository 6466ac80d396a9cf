package exporter

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tablecast/internal/delimited"
)

func TestDelimitedEncoderDefaults(t *testing.T) {
	var buf bytes.Buffer
	enc := NewDelimitedEncoder(&buf, DelimitedOptions{})

	require.NoError(t, enc.WriteHeader([]string{"id", "name"}))
	require.NoError(t, enc.WriteRow([]any{int64(1), "Ada"}))
	require.NoError(t, enc.WriteRow([]any{int64(2), "Grace, H"}))
	require.NoError(t, enc.Close())

	require.Equal(t, "id,name\n1,Ada\n2,\"Grace, H\"\n", buf.String())
}

func TestDelimitedEncoderCustomControls(t *testing.T) {
	var buf bytes.Buffer
	enc := NewDelimitedEncoder(&buf, DelimitedOptions{
		Delimiter:  ";",
		Quote:      "'",
		Escape:     "\\",
		Terminator: "\r",
		OmitHeader: true,
	})

	require.NoError(t, enc.WriteHeader([]string{"ignored"}))
	require.NoError(t, enc.WriteRow([]any{"a;b", "it's"}))
	require.NoError(t, enc.Close())

	require.Equal(t, "'a;b';'it\\'s'\r", buf.String())
}

func TestDelimitedEncoderNormalizesDriverValues(t *testing.T) {
	var buf bytes.Buffer
	enc := NewDelimitedEncoder(&buf, DelimitedOptions{OmitHeader: true})

	ts := time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)
	require.NoError(t, enc.WriteRow([]any{[]byte("blob"), ts, true, nil, 2.5}))
	require.NoError(t, enc.Close())

	require.Equal(t, "blob,2024-05-17 09:30:00,1,,2.5\n", buf.String())
}

func TestDelimitedEncoderNoFormulaGuard(t *testing.T) {
	// Delimited output is verbatim; the spreadsheet injection guard must not
	// rewrite cells here.
	var buf bytes.Buffer
	enc := NewDelimitedEncoder(&buf, DelimitedOptions{OmitHeader: true})

	require.NoError(t, enc.WriteRow([]any{"=SUM(A1:A9)", "@cmd"}))
	require.NoError(t, enc.Close())

	require.Equal(t, "=SUM(A1:A9),@cmd\n", buf.String())
}

func TestDelimitedEncoderInvalidControl(t *testing.T) {
	var buf bytes.Buffer
	enc := NewDelimitedEncoder(&buf, DelimitedOptions{Delimiter: "||"})

	require.NoError(t, enc.WriteRow([]any{"a"}))
	err := enc.Flush()
	require.ErrorIs(t, err, delimited.ErrInvalidConfig)
	require.ErrorIs(t, enc.Error(), delimited.ErrInvalidConfig)
	require.Zero(t, buf.Len())
}

func TestDelimitedEncoderRejectsUnsupportedValue(t *testing.T) {
	var buf bytes.Buffer
	enc := NewDelimitedEncoder(&buf, DelimitedOptions{OmitHeader: true})

	require.NoError(t, enc.WriteRow([]any{"ok"}))
	require.NoError(t, enc.WriteRow([]any{struct{ X int }{1}}))
	err := enc.Flush()
	require.ErrorIs(t, err, delimited.ErrInvalidValue)
	require.Contains(t, err.Error(), "row 1")
}

func TestDelimitedEncoderEmptyExport(t *testing.T) {
	var buf bytes.Buffer
	enc := NewDelimitedEncoder(&buf, DelimitedOptions{OmitHeader: true})
	require.NoError(t, enc.Close())
	require.Zero(t, buf.Len())
}

func TestDelimitedEncoderFlushOnce(t *testing.T) {
	var buf bytes.Buffer
	enc := NewDelimitedEncoder(&buf, DelimitedOptions{OmitHeader: true})
	require.NoError(t, enc.WriteRow([]any{"x"}))
	require.NoError(t, enc.Flush())
	require.NoError(t, enc.Close())
	require.Equal(t, "x\n", buf.String())
}
