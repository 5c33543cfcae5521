package asset

import (
	"context"
	"io"
)

// Repository persists asset metadata.
type Repository interface {
	Create(ctx context.Context, a *Asset) error
	ListByProject(ctx context.Context, projectID string) ([]Asset, error)
	GetByPath(ctx context.Context, path string) (*Asset, error)
}

// BlobStore holds file contents.
type BlobStore interface {
	Put(ctx context.Context, name string, r io.Reader) (int64, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}
