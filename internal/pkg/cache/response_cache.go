package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-museumradar/internal/pkg/observability/metrics"
)

// CacheMetrics tracks cache performance
type CacheMetrics struct {
	Hits          int64
	Misses        int64
	Sets          int64
	WriteFailures int64
}

// BlobKey is the storage key of one session's cache blob. Bumping version
// orphans every blob written under the previous one.
func BlobKey(namespace, version, sessionID string) string {
	return fmt.Sprintf("%s_%s:%s", namespace, version, sessionID)
}

// ResponseCache is a session-scoped, best-effort cache of raw AI payloads.
// All entries of a session live in one blob: a JSON object mapping composite
// query keys to raw JSON values. Writes never fail from the caller's point of
// view; the cache is an optimization, not a dependency.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]json.RawMessage
	store   BlobStore
	blobKey string
	logger  *zap.Logger

	hits, misses, sets, writeFailures atomic.Int64
}

// NewResponseCache creates the cache for one session and loads any blob the
// store already holds for it.
func NewResponseCache(ctx context.Context, store BlobStore, blobKey string, logger *zap.Logger) *ResponseCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &ResponseCache{
		entries: make(map[string]json.RawMessage),
		store:   store,
		blobKey: blobKey,
		logger:  logger.With(zap.String("cache", blobKey)),
	}
	c.reload(ctx)
	return c
}

// Get decodes the entry for key into out. A miss, or an entry that no longer
// decodes into out, reports false.
func (c *ResponseCache) Get(ctx context.Context, key string, out any) bool {
	raw, ok := c.GetRaw(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Debug("Cache entry does not decode, treating as miss",
			zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// GetRaw returns the raw payload stored under key. On an in-memory miss the blob
// is re-read from the store so writes from other instances become visible.
func (c *ResponseCache) GetRaw(ctx context.Context, key string) (json.RawMessage, bool) {
	if raw, ok := c.lookup(key); ok {
		c.recordLookup(ctx, key, true)
		return raw, true
	}

	c.reload(ctx)
	raw, ok := c.lookup(key)
	c.recordLookup(ctx, key, ok)
	return raw, ok
}

// Put stores value under key and writes the whole blob through to the store.
// Failures are logged and counted, never returned. After a store error the
// entry keeps serving this instance from memory, except when the blob exceeds
// the store quota: the entry is then dropped again so later writes still fit.
func (c *ResponseCache) Put(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.writeFailed(ctx, key, fmt.Errorf("%w: marshal: %v", ErrCacheWriteFailed, err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, existed := c.entries[key]
	c.entries[key] = raw
	c.sets.Add(1)

	blob, err := json.Marshal(c.entries)
	if err != nil {
		c.writeFailed(ctx, key, fmt.Errorf("%w: marshal blob: %v", ErrCacheWriteFailed, err))
		return
	}
	if err := c.store.Save(ctx, c.blobKey, blob); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			if existed {
				c.entries[key] = prev
			} else {
				delete(c.entries, key)
			}
		}
		c.writeFailed(ctx, key, fmt.Errorf("%w: %v", ErrCacheWriteFailed, err))
		return
	}

	c.logger.Debug("Cache set", zap.String("key", key), zap.Int("blob_bytes", len(blob)))
}

// Len returns the number of entries currently held in memory.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetMetrics returns current cache metrics
func (c *ResponseCache) GetMetrics() CacheMetrics {
	return CacheMetrics{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Sets:          c.sets.Load(),
		WriteFailures: c.writeFailures.Load(),
	}
}

// ErrCacheWriteFailed wraps every swallowed write failure in the logs.
var ErrCacheWriteFailed = errors.New("cache write failed")

func (c *ResponseCache) lookup(key string) (json.RawMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	raw, ok := c.entries[key]
	return raw, ok
}

// reload merges the stored blob into memory. Entries already in memory win, so
// a stale blob never hides a fresher local write.
func (c *ResponseCache) reload(ctx context.Context) {
	blob, err := c.store.Load(ctx, c.blobKey)
	if err != nil {
		if !errors.Is(err, ErrBlobNotFound) {
			c.logger.Debug("Cache blob load failed", zap.Error(err))
		}
		return
	}

	var stored map[string]json.RawMessage
	if err := json.Unmarshal(blob, &stored); err != nil {
		c.logger.Debug("Cache blob is corrupt, ignoring it", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range stored {
		if _, exists := c.entries[k]; !exists {
			c.entries[k] = v
		}
	}
}

func (c *ResponseCache) recordLookup(ctx context.Context, key string, hit bool) {
	result := "miss"
	if hit {
		c.hits.Add(1)
		result = "hit"
	} else {
		c.misses.Add(1)
	}
	metrics.Get().CacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	c.logger.Debug("Cache "+result, zap.String("key", key))
}

func (c *ResponseCache) writeFailed(ctx context.Context, key string, err error) {
	c.writeFailures.Add(1)
	metrics.Get().CacheWriteFailures.Add(ctx, 1)
	c.logger.Debug("Cache write failed, continuing without it", zap.String("key", key), zap.Error(err))
}
