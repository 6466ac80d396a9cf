package worker

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"tablecast/internal/driver"
	"tablecast/internal/email"
	"tablecast/internal/exporter"
	"tablecast/internal/storage"
)

// Notifier receives job lifecycle events, typically to fan them out to
// dashboard websockets. It must not block.
type Notifier func(jobID string, status JobStatus, rows int64)

// Pool runs export jobs on a fixed set of workers. A separate weighted
// semaphore caps how many jobs may hold a database connection at once, so a
// wide pool cannot overload the source database.
type Pool struct {
	jobQueue chan *ExportJob
	workers  int
	dbSem    *semaphore.Weighted
	wg       sync.WaitGroup
	quit     chan struct{}

	drv        driver.Driver
	storage    storage.Provider
	emailer    email.Sender
	notify     Notifier
	useGzip    bool
	attachFile bool
}

// NewPool wires a pool; Start launches the workers.
func NewPool(workers int, maxDBConcurrency int64, drv driver.Driver, store storage.Provider, emailer email.Sender, useGzip, attachFile bool) *Pool {
	return &Pool{
		jobQueue:   make(chan *ExportJob, 100),
		workers:    workers,
		dbSem:      semaphore.NewWeighted(maxDBConcurrency),
		quit:       make(chan struct{}),
		drv:        drv,
		storage:    store,
		emailer:    emailer,
		useGzip:    useGzip,
		attachFile: attachFile,
	}
}

// SetNotifier installs the lifecycle event callback. Call before Start.
func (p *Pool) SetNotifier(n Notifier) {
	p.notify = n
}

func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	slog.Info("Worker pool started", "workers", p.workers)
}

// Submit enqueues a job. It returns false when the queue is full or the pool
// is stopping.
func (p *Pool) Submit(job *ExportJob) bool {
	select {
	case p.jobQueue <- job:
		return true
	case <-p.quit:
		return false
	default:
		return false
	}
}

// Stop initiates graceful shutdown and waits for in-flight jobs.
func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
	slog.Info("Worker pool stopped")
}

func (p *Pool) workerLoop(id int) {
	defer p.wg.Done()
	slog.Debug("Worker started", "worker_id", id)

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.processJob(id, job)
		case <-p.quit:
			return
		}
	}
}

func (p *Pool) processJob(workerID int, job *ExportJob) {
	defer job.Cancel()
	slog.Info("Processing job", "worker_id", workerID, "job_id", job.ID)

	job.Started = time.Now()
	job.Status = StatusProcessing
	p.emit(job, 0)
	waitTime := job.Started.Sub(job.Submitted)

	// Only query jobs touch the database; inline tables skip the semaphore.
	if job.IsQuery() {
		if err := p.dbSem.Acquire(job.Ctx, 1); err != nil {
			p.failJob(job, fmt.Errorf("failed to acquire db slot: %w", err))
			return
		}
		defer p.dbSem.Release(1)
	}

	if err := p.executeExport(job); err != nil {
		p.failJob(job, err)
		return
	}

	job.Status = StatusCompleted
	job.Finished = time.Now()
	p.emit(job, job.Stats.RowsProcessed)
	slog.Info("Job completed", "job_id", job.ID, "rows", job.Stats.RowsProcessed)

	p.sendNotification(job, waitTime)
}

func (p *Pool) executeExport(job *ExportJob) error {
	key := fmt.Sprintf("exports/%s.%s", job.ID, job.FileExtension())
	if p.useGzip {
		key += ".gz"
	}
	job.StorageKey = key

	storageWriter, errChan := p.storage.StreamToFile(job.Ctx, key)
	if storageWriter == nil {
		return <-errChan
	}

	var finalWriter io.WriteCloser = storageWriter
	if p.useGzip {
		finalWriter = gzip.NewWriter(storageWriter)
	}

	var encoder exporter.RowEncoder
	switch job.Format {
	case "json":
		encoder = exporter.NewJSONEncoder(finalWriter)
	case "excel":
		encoder = exporter.NewExcelEncoder(finalWriter)
	case "pdf":
		encoder = exporter.NewPDFEncoder(finalWriter)
	default:
		encoder = exporter.NewDelimitedEncoder(finalWriter, job.Delimited)
	}

	var stats *exporter.ExportResult
	var exportErr error
	if job.IsQuery() {
		if p.drv == nil {
			exportErr = errors.New("no source driver configured")
		} else {
			stats, exportErr = exporter.NewPump(p.drv).Run(job.Ctx, job.Query, encoder)
		}
	} else {
		stats, exportErr = exporter.RenderRows(job.Columns, job.Rows, encoder)
	}

	encoderCloseErr := encoder.Close()

	// Gzip must close before the storage writer to flush its footer.
	var gzipCloseErr error
	if gw, ok := finalWriter.(*gzip.Writer); ok {
		gzipCloseErr = gw.Close()
	}
	storageCloseErr := storageWriter.Close()
	uploadErr := <-errChan

	if exportErr != nil {
		return fmt.Errorf("export failed: %w", exportErr)
	}
	if encoderCloseErr != nil {
		return fmt.Errorf("encoder close failed: %w", encoderCloseErr)
	}
	if gzipCloseErr != nil {
		return fmt.Errorf("gzip close failed: %w", gzipCloseErr)
	}
	if storageCloseErr != nil {
		return fmt.Errorf("storage close failed: %w", storageCloseErr)
	}
	if uploadErr != nil {
		return fmt.Errorf("upload failed: %w", uploadErr)
	}

	job.Stats = stats
	return nil
}

const maxAttachmentSize = 25 * 1024 * 1024 // mail provider ceiling

func (p *Pool) sendNotification(job *ExportJob, waitTime time.Duration) {
	if job.Email == "" {
		return
	}

	summary := fmt.Sprintf(
		"Job Summary:\n"+
			"----------------\n"+
			"Job ID: %s\n"+
			"Rows Processed: %d\n"+
			"Submitted: %s\n"+
			"Started: %s (Wait: %v)\n"+
			"Finished: %s\n"+
			"Total Duration: %v\n",
		job.ID,
		job.Stats.RowsProcessed,
		job.Submitted.Format(time.DateTime),
		job.Started.Format(time.DateTime), waitTime,
		job.Finished.Format(time.DateTime),
		job.Finished.Sub(job.Started),
	)

	if !p.attachFile {
		p.emailer.SendDownloadLink(job.Email, p.storage.GetDownloadURL(job.StorageKey), summary)
		return
	}

	content, err := p.readAttachment(job)
	if err != nil {
		slog.Warn("Skipping attachment", "key", job.StorageKey, "error", err)
		url := p.storage.GetDownloadURL(job.StorageKey)
		summary += fmt.Sprintf("\nAttachment skipped: %v\nDownload Link: %s", err, url)
		p.emailer.SendDownloadLink(job.Email, url, summary)
		return
	}
	p.emailer.SendWithAttachment(job.Email, job.StorageKey, content, summary)
}

func (p *Pool) readAttachment(job *ExportJob) ([]byte, error) {
	reader, err := p.storage.OpenFile(job.Ctx, job.StorageKey)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	content, err := io.ReadAll(io.LimitReader(reader, maxAttachmentSize+1))
	if err != nil {
		return nil, err
	}
	if len(content) > maxAttachmentSize {
		return nil, fmt.Errorf("file exceeds max attachment size (%d bytes)", maxAttachmentSize)
	}
	return content, nil
}

func (p *Pool) failJob(job *ExportJob, err error) {
	job.Status = StatusFailed
	job.Error = err
	job.Finished = time.Now()
	p.emit(job, 0)
	slog.Error("Job failed", "job_id", job.ID, "error", err)
}

func (p *Pool) emit(job *ExportJob, rows int64) {
	if p.notify != nil {
		p.notify(job.ID, job.Status, rows)
	}
}
