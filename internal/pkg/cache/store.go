package cache

import (
	"context"
	"errors"
)

var (
	// ErrBlobNotFound is returned by a BlobStore when the session has no blob yet.
	ErrBlobNotFound = errors.New("cache blob not found")
	// ErrQuotaExceeded is returned when a blob is larger than the store accepts.
	ErrQuotaExceeded = errors.New("cache quota exceeded")
)

// BlobStore is the session-scoped storage medium behind a ResponseCache. It
// holds one opaque blob per key and serializes individual writes.
type BlobStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
}
