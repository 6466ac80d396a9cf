package storage

import (
	"context"
	"io"
)

// Provider stores finished export documents.
type Provider interface {
	// StreamToFile returns a WriteCloser; bytes written to it are streamed
	// to the destination object named by key. The returned channel receives
	// exactly one error (or nil) when the storage side completes.
	StreamToFile(ctx context.Context, key string) (io.WriteCloser, <-chan error)

	// OpenFile opens a stored object for reading.
	OpenFile(ctx context.Context, key string) (io.ReadCloser, error)

	// GetDownloadURL returns a URL the recipient can fetch the object from.
	GetDownloadURL(key string) string
}
