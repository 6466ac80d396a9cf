// Package driver abstracts the data sources an export job can read from.
package driver

import (
	"context"
	"fmt"
)

// Driver is a connectable data source that answers queries with a row
// stream.
type Driver interface {
	// Name returns the source kind ("mysql", "postgres", "mongo").
	Name() string

	// Ping verifies connectivity, connecting lazily if needed.
	Ping(ctx context.Context) error

	// Query executes a query and returns a RowStreamer over the results.
	Query(ctx context.Context, query string) (RowStreamer, error)

	// Close releases the underlying connection.
	Close() error
}

// TxQueryer is implemented by drivers that can answer a query inside a
// read-only snapshot transaction, so long exports see a consistent view of
// the data. Callers fall back to Query when a driver does not implement it.
type TxQueryer interface {
	QueryTx(ctx context.Context, query string) (RowStreamer, error)
}

// RowStreamer iterates a result set one row at a time. It mirrors the
// sql.Rows surface so SQL results can be passed through without wrapping.
type RowStreamer interface {
	// Columns returns the column names, available once Query returns.
	Columns() ([]string, error)

	// Next advances to the next row; false on exhaustion or error.
	Next() bool

	// Scan copies the current row into dest, one pointer per column.
	Scan(dest ...any) error

	// Err returns the error, if any, encountered during iteration.
	Err() error

	// Close releases the stream.
	Close() error
}

// Open returns a driver for the named source kind.
func Open(kind, dsn string) (Driver, error) {
	switch kind {
	case "mysql", "postgres":
		return NewSQLDriver(kind, dsn), nil
	case "mongo":
		return NewMongoDriver(dsn), nil
	default:
		return nil, fmt.Errorf("unknown driver kind %q", kind)
	}
}
