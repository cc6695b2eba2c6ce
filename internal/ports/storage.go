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
	// ObjectKey under localfs is the input key; under gdrive it is the
	// Drive fileId, which is what later reads and deletes need.
	ObjectKey string
	Size      int64
	// PublicURL is the stable public reference for the stored object.
	PublicURL string
}

// StorageProvider is the object storage contract (localfs, gdrive, ...).
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	DeleteObject(ctx context.Context, objectKey string) error
}
