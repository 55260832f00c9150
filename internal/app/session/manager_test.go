package session

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-museumradar/internal/app/domain/gateway"
	"github.com/FACorreiaa/go-museumradar/internal/app/domain/search"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/cache"
)

// stubBackend answers every structured query with an empty list.
type stubBackend struct{}

func (stubBackend) Generate(context.Context, string, *genai.GenerateContentConfig) (string, error) {
	return "[]", nil
}

func (stubBackend) GenerateStream(context.Context, string, *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	return func(func(*genai.GenerateContentResponse, error) bool) {}
}

func newTestManager(ttl time.Duration) *Manager {
	return NewManager(Config{
		TTL:            ttl,
		FallbackKey:    "server-key-123",
		CacheNamespace: "museum_radar_cache",
		CacheVersion:   "v14",
	}, cache.NewMemoryStore(time.Hour, 0), func(gateway.KeySource) gateway.Backend { return stubBackend{} }, nil)
}

func TestGetOrCreate(t *testing.T) {
	m := newTestManager(time.Hour)
	ctx := context.Background()

	s, created := m.GetOrCreate(ctx, "")
	require.True(t, created)
	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)
	assert.True(t, s.Keyring.HasActiveCredential())

	again, created := m.GetOrCreate(ctx, s.ID)
	assert.False(t, created)
	assert.Same(t, s, again)
	assert.Equal(t, 1, m.Len())
}

func TestGetOrCreateAdoptsWellFormedUnknownID(t *testing.T) {
	m := newTestManager(time.Hour)
	id := uuid.NewString()

	s, created := m.GetOrCreate(context.Background(), id)
	assert.True(t, created)
	assert.Equal(t, id, s.ID)

	other, _ := m.GetOrCreate(context.Background(), "not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", other.ID)
}

func TestSessionsDoNotShareState(t *testing.T) {
	m := newTestManager(time.Hour)
	a, _ := m.GetOrCreate(context.Background(), "")
	b, _ := m.GetOrCreate(context.Background(), "")

	require.NoError(t, a.Keyring.Select("session-key-a"))
	assert.Equal(t, "server-key-123", b.Keyring.ActiveKey())

	a.Cache.Put(context.Background(), "city-52.37-4.89", "Amsterdam")
	var city string
	assert.False(t, b.Cache.Get(context.Background(), "city-52.37-4.89", &city))
}

func TestCleanupExpiredSessions(t *testing.T) {
	m := newTestManager(time.Minute)
	s, _ := m.GetOrCreate(context.Background(), "")

	assert.Equal(t, 0, m.CleanupExpiredSessions(time.Now()))
	assert.Equal(t, 1, m.CleanupExpiredSessions(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 0, m.Len())

	select {
	case <-s.Done():
	default:
		t.Fatal("expired session was not closed")
	}
}

func TestPublishDropsOldestWhenReaderIsSlow(t *testing.T) {
	m := newTestManager(time.Hour)
	s, _ := m.GetOrCreate(context.Background(), "")

	for i := 0; i < updateBuffer+5; i++ {
		s.publish(search.GuideUpdate{RadiusKm: i})
	}
	assert.Len(t, s.Updates(), updateBuffer)
	first := <-s.Updates()
	assert.Equal(t, 5, first.RadiusKm)
}

func TestPublishAfterCloseIsIgnored(t *testing.T) {
	m := newTestManager(time.Hour)
	s, _ := m.GetOrCreate(context.Background(), "")
	m.Close(s.ID)

	assert.NotPanics(t, func() { s.publish(search.GuideUpdate{Key: "late"}) })
	assert.Len(t, s.Updates(), 0)
	_, ok := m.Get(s.ID)
	assert.False(t, ok)
}

func TestRunClosesSessionsOnShutdown(t *testing.T) {
	m := newTestManager(time.Hour)
	s, _ := m.GetOrCreate(context.Background(), "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	<-done

	assert.Equal(t, 0, m.Len())
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session not closed on shutdown")
	}
}
