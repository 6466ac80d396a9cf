package worker

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tablecast/internal/email"
	"tablecast/internal/exporter"
	"tablecast/internal/storage"
)

func newTestPool(t *testing.T, useGzip bool) (*Pool, string) {
	t.Helper()
	base := t.TempDir()
	store := storage.NewLocalProvider(base)
	p := NewPool(1, 1, nil, store, email.NewLogSender(), useGzip, false)
	return p, base
}

func inlineJob(t *testing.T) *ExportJob {
	t.Helper()
	job := NewExportJob("delimited", "", time.Minute)
	job.Columns = []string{"id", "name"}
	job.Rows = [][]any{
		{1, "Ada"},
		{2, "Grace, H"},
	}
	return job
}

func TestProcessInlineTableJob(t *testing.T) {
	p, base := newTestPool(t, false)
	job := inlineJob(t)

	p.processJob(0, job)

	require.Equal(t, StatusCompleted, job.Status)
	require.NoError(t, job.Error)
	require.EqualValues(t, 2, job.Stats.RowsProcessed)
	require.Equal(t, "exports/"+job.ID+".csv", job.StorageKey)

	data, err := os.ReadFile(filepath.Join(base, job.StorageKey))
	require.NoError(t, err)
	require.Equal(t, "id,name\n1,Ada\n2,\"Grace, H\"\n", string(data))
}

func TestProcessJobCustomControls(t *testing.T) {
	p, base := newTestPool(t, false)
	job := inlineJob(t)
	job.Delimited = exporter.DelimitedOptions{Delimiter: "\t"}

	p.processJob(0, job)

	require.Equal(t, StatusCompleted, job.Status)
	data, err := os.ReadFile(filepath.Join(base, job.StorageKey))
	require.NoError(t, err)
	require.Equal(t, "id\tname\n1\tAda\n2\tGrace, H\n", string(data))
}

func TestProcessJobGzip(t *testing.T) {
	p, base := newTestPool(t, true)
	job := inlineJob(t)

	p.processJob(0, job)

	require.Equal(t, StatusCompleted, job.Status)
	require.Equal(t, "exports/"+job.ID+".csv.gz", job.StorageKey)

	f, err := os.Open(filepath.Join(base, job.StorageKey))
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gr)
	require.NoError(t, err)
	require.Equal(t, "id,name\n1,Ada\n2,\"Grace, H\"\n", string(data))
}

func TestProcessJobBadControlFails(t *testing.T) {
	p, _ := newTestPool(t, false)
	job := inlineJob(t)
	job.Delimited = exporter.DelimitedOptions{Quote: "''"}

	p.processJob(0, job)

	require.Equal(t, StatusFailed, job.Status)
	require.Error(t, job.Error)
}

func TestProcessJobNotifier(t *testing.T) {
	p, _ := newTestPool(t, false)

	var statuses []JobStatus
	p.SetNotifier(func(_ string, status JobStatus, _ int64) {
		statuses = append(statuses, status)
	})

	p.processJob(0, inlineJob(t))
	require.Equal(t, []JobStatus{StatusProcessing, StatusCompleted}, statuses)
}

func TestSubmitQueueFull(t *testing.T) {
	p, _ := newTestPool(t, false)
	// Workers are never started, so the queue fills up.
	for i := 0; i < 100; i++ {
		require.True(t, p.Submit(inlineJob(t)))
	}
	require.False(t, p.Submit(inlineJob(t)))
}

func TestFileExtension(t *testing.T) {
	cases := map[string]string{
		"delimited": "csv",
		"":          "csv",
		"json":      "jsonl",
		"excel":     "xlsx",
		"pdf":       "pdf",
	}
	for format, want := range cases {
		job := NewExportJob(format, "", time.Minute)
		require.Equal(t, want, job.FileExtension(), "format %q", format)
	}
}
