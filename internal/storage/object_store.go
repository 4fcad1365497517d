package storage

import (
	"context"
	"io"
)

type ObjectStore interface {
	PutObject(ctx context.Context, key string, data io.Reader) error

	GetObject(ctx context.Context, key string) (io.ReadCloser, error)

	DeleteObjects(ctx context.Context, prefix string) error

	// LocalPath returns a path on the local filesystem containing the object.
	// PDF parsing and OCR upload both require a real file on disk.
	LocalPath(ctx context.Context, key string) (string, error)
}
