package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// LocalProvider writes exports under a base directory. Files are written to
// a temporary name and renamed on Close, so a partially written export is
// never visible under its final key.
type LocalProvider struct {
	basePath string
}

func NewLocalProvider(basePath string) *LocalProvider {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		slog.Error("Failed to ensure local storage directory exists", "path", basePath, "error", err)
	}
	return &LocalProvider{basePath: basePath}
}

func (p *LocalProvider) StreamToFile(ctx context.Context, key string) (io.WriteCloser, <-chan error) {
	errChan := make(chan error, 1)

	fullPath := filepath.Join(p.basePath, key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		errChan <- fmt.Errorf("failed to create directory for %s: %w", key, err)
		close(errChan)
		return nil, errChan
	}

	f, err := os.CreateTemp(filepath.Dir(fullPath), filepath.Base(fullPath)+".tmp-*")
	if err != nil {
		errChan <- fmt.Errorf("failed to create temp file for %s: %w", key, err)
		close(errChan)
		return nil, errChan
	}

	return &localWriter{f: f, finalPath: fullPath, errChan: errChan}, errChan
}

func (p *LocalProvider) OpenFile(_ context.Context, key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(p.basePath, key))
}

func (p *LocalProvider) GetDownloadURL(key string) string {
	abs, _ := filepath.Abs(filepath.Join(p.basePath, key))
	return "file://" + abs
}

type localWriter struct {
	f         *os.File
	finalPath string
	errChan   chan error
}

func (w *localWriter) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

func (w *localWriter) Close() error {
	defer close(w.errChan)

	err := w.f.Close()
	if err == nil {
		err = os.Rename(w.f.Name(), w.finalPath)
	}
	if err != nil {
		_ = os.Remove(w.f.Name())
		w.errChan <- err
		return err
	}

	slog.Info("Local file write completed", "path", w.finalPath)
	w.errChan <- nil
	return nil
}
