package exporter

import (
	"context"
	"fmt"
	"time"

	"tablecast/internal/driver"
)

// ExportResult carries the outcome stats of one export run.
type ExportResult struct {
	RowsProcessed int64
	Duration      time.Duration
}

// Pump executes a query against a driver and feeds every result row into a
// RowEncoder. Scan buffers are reused, so memory stays constant regardless
// of result size; the encoder decides whether it streams or buffers.
type Pump struct {
	drv driver.Driver
}

// NewPump creates a pump bound to one database driver.
func NewPump(d driver.Driver) *Pump {
	return &Pump{drv: d}
}

// Run executes query and drains the result set into enc. It honors ctx
// cancellation between rows and finishes with a Flush so the encoder's
// document is complete when Run returns.
//
// When the driver supports it, the query runs inside a read-only
// repeatable-read transaction so the export reads one snapshot even while
// the table is being written to.
func (p *Pump) Run(ctx context.Context, query string, enc RowEncoder) (*ExportResult, error) {
	start := time.Now()

	var rows driver.RowStreamer
	var err error
	if txq, ok := p.drv.(driver.TxQueryer); ok {
		rows, err = txq.QueryTx(ctx, query)
	} else {
		rows, err = p.drv.Query(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	if err := enc.WriteHeader(columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	values := make([]any, len(columns))
	scanArgs := make([]any, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	var rowCount int64
	for rows.Next() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}
		if err := enc.WriteRow(values); err != nil {
			return nil, fmt.Errorf("row encode failed: %w", err)
		}
		rowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("encoder flush failed: %w", err)
	}
	if err := enc.Error(); err != nil {
		return nil, fmt.Errorf("encoder error: %w", err)
	}

	return &ExportResult{
		RowsProcessed: rowCount,
		Duration:      time.Since(start),
	}, nil
}
