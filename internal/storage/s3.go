package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Provider streams exports to an S3 bucket through a pipe feeding the
// multipart uploader, so the document never has to fit in memory or on
// local disk.
type S3Provider struct {
	client *s3.Client
	bucket string
}

func NewS3Provider(client *s3.Client, bucket string) *S3Provider {
	return &S3Provider{client: client, bucket: bucket}
}

func (p *S3Provider) StreamToFile(ctx context.Context, key string) (io.WriteCloser, <-chan error) {
	reader, writer := io.Pipe()
	errChan := make(chan error, 1)

	go func() {
		defer close(errChan)

		uploader := manager.NewUploader(p.client, func(u *manager.Uploader) {
			u.PartSize = 10 * 1024 * 1024
			u.Concurrency = 5
		})

		slog.Info("Starting S3 upload", "bucket", p.bucket, "key", key)
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
			Body:   reader,
		})
		_ = reader.Close()

		if err != nil {
			slog.Error("S3 upload failed", "key", key, "error", err)
			errChan <- fmt.Errorf("s3 upload failed: %w", err)
			return
		}
		slog.Info("S3 upload finished", "key", key)
		errChan <- nil
	}()

	return writer, errChan
}

func (p *S3Provider) OpenFile(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (p *S3Provider) GetDownloadURL(key string) string {
	return fmt.Sprintf("s3://%s/%s", p.bucket, key)
}
