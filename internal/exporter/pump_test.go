package exporter

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"tablecast/internal/driver"
)

// fakeDriver replays a fixed result set.
type fakeDriver struct {
	columns  []string
	rows     [][]any
	queryErr error
}

func (d *fakeDriver) Name() string               { return "fake" }
func (d *fakeDriver) Ping(context.Context) error { return nil }
func (d *fakeDriver) Close() error               { return nil }

func (d *fakeDriver) Query(_ context.Context, _ string) (driver.RowStreamer, error) {
	if d.queryErr != nil {
		return nil, d.queryErr
	}
	return &fakeStreamer{columns: d.columns, rows: d.rows, pos: -1}, nil
}

type fakeStreamer struct {
	columns []string
	rows    [][]any
	pos     int
}

func (s *fakeStreamer) Columns() ([]string, error) { return s.columns, nil }
func (s *fakeStreamer) Err() error                 { return nil }
func (s *fakeStreamer) Close() error               { return nil }

func (s *fakeStreamer) Next() bool {
	s.pos++
	return s.pos < len(s.rows)
}

func (s *fakeStreamer) Scan(dest ...any) error {
	for i, d := range dest {
		*(d.(*any)) = s.rows[s.pos][i]
	}
	return nil
}

func TestPumpRunDelimited(t *testing.T) {
	drv := &fakeDriver{
		columns: []string{"id", "city"},
		rows: [][]any{
			{int64(1), "Lisbon"},
			{int64(2), "Porto, PT"},
		},
	}

	var buf bytes.Buffer
	enc := NewDelimitedEncoder(&buf, DelimitedOptions{})
	res, err := NewPump(drv).Run(context.Background(), "SELECT id, city FROM t", enc)
	require.NoError(t, err)
	require.EqualValues(t, 2, res.RowsProcessed)
	require.Equal(t, "id,city\n1,Lisbon\n2,\"Porto, PT\"\n", buf.String())
}

func TestPumpRunEmptyResult(t *testing.T) {
	drv := &fakeDriver{columns: []string{"id"}}

	var buf bytes.Buffer
	enc := NewDelimitedEncoder(&buf, DelimitedOptions{})
	res, err := NewPump(drv).Run(context.Background(), "SELECT id FROM t", enc)
	require.NoError(t, err)
	require.Zero(t, res.RowsProcessed)
	// Header only.
	require.Equal(t, "id\n", buf.String())
}

func TestPumpRunQueryError(t *testing.T) {
	drv := &fakeDriver{queryErr: errors.New("boom")}
	_, err := NewPump(drv).Run(context.Background(), "SELECT 1", NewJSONEncoder(&bytes.Buffer{}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "query execution failed")
}

func TestPumpRunHonorsCancellation(t *testing.T) {
	drv := &fakeDriver{
		columns: []string{"id"},
		rows:    [][]any{{int64(1)}, {int64(2)}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPump(drv).Run(ctx, "SELECT id FROM t", NewJSONEncoder(&bytes.Buffer{}))
	require.ErrorIs(t, err, context.Canceled)
}

// txFakeDriver also offers a snapshot query path and records which one was
// used.
type txFakeDriver struct {
	fakeDriver
	queryCalled   bool
	queryTxCalled bool
}

func (d *txFakeDriver) Query(ctx context.Context, q string) (driver.RowStreamer, error) {
	d.queryCalled = true
	return d.fakeDriver.Query(ctx, q)
}

func (d *txFakeDriver) QueryTx(ctx context.Context, q string) (driver.RowStreamer, error) {
	d.queryTxCalled = true
	return d.fakeDriver.Query(ctx, q)
}

func TestPumpRunPrefersSnapshotQuery(t *testing.T) {
	drv := &txFakeDriver{fakeDriver: fakeDriver{
		columns: []string{"id"},
		rows:    [][]any{{int64(1)}},
	}}

	var buf bytes.Buffer
	res, err := NewPump(drv).Run(context.Background(), "SELECT id FROM t", NewDelimitedEncoder(&buf, DelimitedOptions{}))
	require.NoError(t, err)
	require.EqualValues(t, 1, res.RowsProcessed)
	require.True(t, drv.queryTxCalled)
	require.False(t, drv.queryCalled)
}

func TestPumpRunJSONLines(t *testing.T) {
	drv := &fakeDriver{
		columns: []string{"id", "name"},
		rows:    [][]any{{int64(7), "Ada"}},
	}

	var buf bytes.Buffer
	res, err := NewPump(drv).Run(context.Background(), "SELECT * FROM t", NewJSONEncoder(&buf))
	require.NoError(t, err)
	require.EqualValues(t, 1, res.RowsProcessed)
	require.JSONEq(t, `{"id":7,"name":"Ada"}`, buf.String())
}
