package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tablecast/internal/exporter"
)

type JobStatus string

const (
	StatusPending    JobStatus = "PENDING"
	StatusProcessing JobStatus = "PROCESSING"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
)

// ExportJob is a single unit of work: one table or query, one output format,
// one destination object.
type ExportJob struct {
	// ID is the unique UUID v4 for the job.
	ID string

	// Source. Exactly one is set: Rows for an inline table (with optional
	// Columns naming the header), Query for a database export.
	Columns []string
	Rows    [][]any
	Query   string

	// Format is the output format: "delimited", "json", "excel" or "pdf".
	Format string
	// Delimited carries the per-job control characters for delimited output.
	Delimited exporter.DelimitedOptions

	// Email is the recipient address for the completion notification.
	Email string

	// Lifecycle tracking.
	Submitted time.Time
	Started   time.Time
	Finished  time.Time
	Status    JobStatus
	Error     error
	Stats     *exporter.ExportResult
	// StorageKey is the object path the document was stored under.
	StorageKey string

	Ctx    context.Context
	Cancel context.CancelFunc
}

// IsQuery reports whether the job reads from a database rather than an
// inline table.
func (j *ExportJob) IsQuery() bool {
	return j.Query != ""
}

// NewExportJob creates a pending job with a fresh ID and a deadline.
func NewExportJob(format, email string, timeout time.Duration) *ExportJob {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	if format == "" {
		format = "delimited"
	}
	return &ExportJob{
		ID:        uuid.New().String(),
		Format:    format,
		Email:     email,
		Submitted: time.Now(),
		Status:    StatusPending,
		Ctx:       ctx,
		Cancel:    cancel,
	}
}

// FileExtension maps the job format to the stored file's extension.
func (j *ExportJob) FileExtension() string {
	switch j.Format {
	case "json":
		return "jsonl"
	case "excel":
		return "xlsx"
	case "pdf":
		return "pdf"
	default:
		return "csv"
	}
}
