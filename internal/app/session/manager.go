package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-museumradar/internal/app/domain/credentials"
	"github.com/FACorreiaa/go-museumradar/internal/app/domain/gateway"
	"github.com/FACorreiaa/go-museumradar/internal/app/domain/normalizer"
	"github.com/FACorreiaa/go-museumradar/internal/app/domain/search"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/cache"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/observability/metrics"
)

// BackendFactory builds the AI backend of a session from its key source.
type BackendFactory func(keys gateway.KeySource) gateway.Backend

type Config struct {
	TTL            time.Duration
	FallbackKey    string
	CacheNamespace string
	CacheVersion   string
	GatewayOptions gateway.Options
	SearchOptions  search.Options
	NormalizerOpts normalizer.Options
}

// Manager owns every live session.
type Manager struct {
	cfg        Config
	store      cache.BlobStore
	newBackend BackendFactory
	norm       *normalizer.Normalizer
	logger     *zap.Logger

	mutex    sync.RWMutex
	sessions map[string]*Session
}

func NewManager(cfg Config, store cache.BlobStore, newBackend BackendFactory, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Hour
	}
	return &Manager{
		cfg:        cfg,
		store:      store,
		newBackend: newBackend,
		norm:       normalizer.New(cfg.NormalizerOpts),
		logger:     logger,
		sessions:   make(map[string]*Session),
	}
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	s, ok := m.sessions[id]
	if ok {
		s.Touch()
	}
	return s, ok
}

// GetOrCreate returns the session for id, creating it when unknown. A
// well-formed id the process does not know is adopted, so a shared cache store
// keeps serving it after a restart; anything else gets a fresh id.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*Session, bool) {
	if s, ok := m.Get(id); ok {
		return s, false
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.Touch()
		return s, false
	}
	s := m.build(ctx, id)
	m.sessions[id] = s
	metrics.Get().ActiveSessions.Add(ctx, 1)
	m.logger.Debug("Session created", zap.String("session_id", id))
	return s, true
}

func (m *Manager) build(ctx context.Context, id string) *Session {
	l := m.logger.With(zap.String("session_id", id))
	s := &Session{
		ID:        id,
		Keyring:   credentials.NewKeyring(m.cfg.FallbackKey),
		CreatedAt: time.Now(),
		updates:   make(chan search.GuideUpdate, updateBuffer),
		done:      make(chan struct{}),
	}
	s.Touch()
	s.Cache = cache.NewResponseCache(context.WithoutCancel(ctx), m.store,
		cache.BlobKey(m.cfg.CacheNamespace, m.cfg.CacheVersion, id), l)
	s.Gateway = gateway.New(m.newBackend(s.Keyring), s.Cache, m.cfg.GatewayOptions, l)
	s.Orchestrator = search.NewOrchestrator(search.Deps{
		AI:            s.Gateway,
		Credentials:   s.Keyring,
		Normalizer:    m.norm,
		Logger:        l,
		OnGuideUpdate: s.publish,
	}, m.cfg.SearchOptions)
	return s
}

// Close ends a session. Its cache blob is left to expire in the store.
func (m *Manager) Close(id string) {
	m.mutex.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mutex.Unlock()
	if ok {
		s.close()
		metrics.Get().ActiveSessions.Add(context.Background(), -1)
	}
}

// CleanupExpiredSessions ends sessions idle for longer than the TTL and
// reports how many were removed.
func (m *Manager) CleanupExpiredSessions(now time.Time) int {
	cutoff := now.Add(-m.cfg.TTL)
	var expired []*Session

	m.mutex.Lock()
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mutex.Unlock()

	for _, s := range expired {
		s.close()
	}
	if len(expired) > 0 {
		metrics.Get().ActiveSessions.Add(context.Background(), -int64(len(expired)))
		m.logger.Info("Expired idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps expired sessions every interval until ctx is done, then closes
// all remaining sessions.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case now := <-ticker.C:
			m.CleanupExpiredSessions(now)
		}
	}
}

func (m *Manager) closeAll() {
	m.mutex.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mutex.Unlock()
	for _, s := range sessions {
		s.close()
	}
	if len(sessions) > 0 {
		metrics.Get().ActiveSessions.Add(context.Background(), -int64(len(sessions)))
	}
}

func (m *Manager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
