package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, client := setupRedis(t)
	store := NewRedisStore(client, time.Hour)

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	require.NoError(t, store.Save(ctx, "blob", []byte(`{"k":1}`)))
	blob, err := store.Load(ctx, "blob")
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":1}`, string(blob))

	require.NoError(t, store.Delete(ctx, "blob"))
	_, err = store.Load(ctx, "blob")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestRedisStoreExpiresWithSession(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	store := NewRedisStore(client, 30*time.Minute)

	require.NoError(t, store.Save(ctx, "blob", []byte(`{}`)))
	assert.Equal(t, 30*time.Minute, mr.TTL("blob"))

	mr.FastForward(31 * time.Minute)
	_, err := store.Load(ctx, "blob")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestResponseCacheOverRedis(t *testing.T) {
	ctx := context.Background()
	_, client := setupRedis(t)
	store := NewRedisStore(client, time.Hour)
	key := BlobKey("museum_radar_cache", "v14", "abc")

	c := NewResponseCache(ctx, store, key, nil)
	c.Put(ctx, "city-m-amsterdam", []record{{Name: "Stedelijk Museum"}})

	fresh := NewResponseCache(ctx, store, key, nil)
	var got []record
	require.True(t, fresh.Get(ctx, "city-m-amsterdam", &got))
	assert.Equal(t, "Stedelijk Museum", got[0].Name)
}

func TestNewRedisClientFailsWithoutServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisClient(ctx, RedisOptions{Address: "127.0.0.1:1"})
	assert.Error(t, err)
}
