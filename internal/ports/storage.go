package ports

import (
	"context"
	"io"
)

type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type PutObjectOutput struct {
	// ObjectKey is the key as stored: the same key for localfs, the Drive
	// file id for gdrive.
	ObjectKey string
	// URL is a human-openable link when the provider has one.
	URL  string
	Size int64
}

// StorageProvider is a publish target and, for remote providers, a source of
// upstream media (localfs, gdrive).
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error)
}
