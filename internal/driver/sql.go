package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// SQLDriver serves MySQL and Postgres through database/sql. *sql.Rows
// already satisfies RowStreamer, so query results pass through untouched.
type SQLDriver struct {
	name string
	dsn  string
	db   *sql.DB
}

// NewSQLDriver creates a lazy-connecting driver. name must be a registered
// database/sql driver name ("mysql" or "postgres").
func NewSQLDriver(name, dsn string) *SQLDriver {
	return &SQLDriver{name: name, dsn: dsn}
}

func (d *SQLDriver) Name() string {
	return d.name
}

func (d *SQLDriver) connect() error {
	if d.db != nil {
		return nil
	}
	db, err := sql.Open(d.name, d.dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", d.name, err)
	}
	d.db = db
	return nil
}

func (d *SQLDriver) Ping(ctx context.Context) error {
	if err := d.connect(); err != nil {
		return err
	}
	return d.db.PingContext(ctx)
}

func (d *SQLDriver) Query(ctx context.Context, query string) (RowStreamer, error) {
	if err := d.connect(); err != nil {
		return nil, err
	}
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// QueryTx runs query inside a read-only repeatable-read transaction, so the
// whole export reads one snapshot of the data. The transaction is rolled
// back when the returned streamer is closed.
func (d *SQLDriver) QueryTx(ctx context.Context, query string) (RowStreamer, error) {
	if err := d.connect(); err != nil {
		return nil, err
	}

	tx, err := d.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	return &txStreamer{Rows: rows, tx: tx}, nil
}

// txStreamer ends the snapshot transaction when the row stream is closed.
type txStreamer struct {
	*sql.Rows
	tx *sql.Tx
}

func (s *txStreamer) Close() error {
	err := s.Rows.Close()
	if rbErr := s.tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && err == nil {
		err = rbErr
	}
	return err
}

func (d *SQLDriver) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
