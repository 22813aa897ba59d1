package blobstore

import (
	"context"
	"io"
)

// PutResult describes one persisted blob payload.
type PutResult struct {
	SHA256    string
	SizeBytes int64
	BlobKey   string
}

// BlobStore is the byte-storage abstraction behind the resource manager.
// Keys are opaque handles; the underlying medium is swappable.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader) (PutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
}
