package exporter

import (
	"fmt"
	"time"
)

// RenderRows feeds an in-memory table into a RowEncoder: the optional column
// names first, then every row in order, then a Flush. It is the inline-table
// counterpart of Pump.Run.
func RenderRows(columns []string, rows [][]any, enc RowEncoder) (*ExportResult, error) {
	start := time.Now()

	if len(columns) > 0 {
		if err := enc.WriteHeader(columns); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	var rowCount int64
	for i, row := range rows {
		if err := enc.WriteRow(row); err != nil {
			return nil, fmt.Errorf("row %d encode failed: %w", i, err)
		}
		rowCount++
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
