package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps session blobs in process memory. Blobs expire after the
// session TTL, which is what ends a session's cache.
type MemoryStore struct {
	items    *gocache.Cache
	maxBytes int
}

// NewMemoryStore creates a store whose blobs live for ttl after their last write.
// maxBytes <= 0 disables the quota.
func NewMemoryStore(ttl time.Duration, maxBytes int) *MemoryStore {
	cleanup := ttl / 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &MemoryStore{
		items:    gocache.New(ttl, cleanup),
		maxBytes: maxBytes,
	}
}

func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	v, ok := s.items.Get(key)
	if !ok {
		return nil, ErrBlobNotFound
	}
	blob, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected blob type %T for key %s", v, key)
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, blob []byte) error {
	if s.maxBytes > 0 && len(blob) > s.maxBytes {
		return fmt.Errorf("%w: %d bytes > %d", ErrQuotaExceeded, len(blob), s.maxBytes)
	}
	stored := make([]byte, len(blob))
	copy(stored, blob)
	s.items.Set(key, stored, gocache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.items.Delete(key)
	return nil
}
