package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-museumradar/internal/app/domain/enrichment"
	"github.com/FACorreiaa/go-museumradar/internal/app/domain/gateway"
	"github.com/FACorreiaa/go-museumradar/internal/app/domain/normalizer"
	"github.com/FACorreiaa/go-museumradar/internal/app/domain/search"
	"github.com/FACorreiaa/go-museumradar/internal/app/handlers"
	"github.com/FACorreiaa/go-museumradar/internal/app/session"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/cache"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/config"
)

// Server holds the dependencies for the HTTP server
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	redis    *redis.Client
	store    cache.BlobStore
	sessions *session.Manager
	enricher handlers.Enricher
	router   http.Handler
}

// New creates a new Server instance with all dependencies
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger,
	}

	store, err := s.setupCacheStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to setup cache store: %w", err)
	}
	s.store = store

	s.sessions = session.NewManager(SessionConfig(cfg), store, GeminiBackendFactory(cfg, logger), logger)

	if cfg.Europeana.Enabled {
		s.enricher = enrichment.NewClient(enrichment.Options{
			BaseURL: cfg.Europeana.BaseURL,
			APIKey:  cfg.Europeana.APIKey,
			Timeout: cfg.Europeana.Timeout,
		}, logger)
	}

	return s, nil
}

// setupCacheStore picks the blob store for session caches.
func (s *Server) setupCacheStore(ctx context.Context) (cache.BlobStore, error) {
	switch s.cfg.Cache.Backend {
	case "redis":
		s.logger.Info("Connecting to Redis", zap.String("address", s.cfg.Redis.Address))
		client, err := cache.NewRedisClient(ctx, cache.RedisOptions{
			Address:  s.cfg.Redis.Address,
			Password: s.cfg.Redis.Password,
			DB:       s.cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		s.redis = client
		return cache.NewRedisStore(client, s.cfg.Session.TTL), nil
	default:
		s.logger.Info("Using in-process cache store")
		return cache.NewMemoryStore(s.cfg.Session.TTL, s.cfg.Cache.MaxBlobBytes), nil
	}
}

// GeminiBackendFactory builds one Gemini backend per session, bound to the
// session's key source.
func GeminiBackendFactory(cfg *config.Config, logger *zap.Logger) session.BackendFactory {
	return func(keys gateway.KeySource) gateway.Backend {
		return gateway.NewGeminiBackend(cfg.AI.Model, keys, logger)
	}
}

// SessionConfig derives the per-session settings from the configuration.
func SessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		TTL:            cfg.Session.TTL,
		FallbackKey:    cfg.AI.APIKey,
		CacheNamespace: cfg.Cache.Namespace,
		CacheVersion:   cfg.Cache.Version,
		GatewayOptions: GatewayOptions(cfg),
		SearchOptions: search.Options{
			GeoTimeout:      cfg.Search.GeoTimeout,
			Debounce:        cfg.Guide.Debounce,
			DefaultRadiusKm: cfg.Guide.DefaultRadiusKm,
			GuideTopic:      cfg.Guide.Topic,
		},
		NormalizerOpts: normalizer.Options{
			MaxDistanceKm: cfg.Search.MaxDistanceKm,
			ToleranceKm:   cfg.Search.DistanceToleranceKm,
		},
	}
}

func GatewayOptions(cfg *config.Config) gateway.Options {
	return gateway.Options{
		CityTimeout:      cfg.AI.CityTimeout,
		DiscoveryTimeout: cfg.AI.DiscoveryTimeout,
		Temperature:      cfg.AI.Temperature,
		MuseumCount:      cfg.AI.MuseumCount,
		MaxDistanceKm:    cfg.Search.MaxDistanceKm,
		PlaceRadiusKm:    cfg.Search.PlaceRadiusKm,
		Language:         cfg.AI.Language,
		Tips:             cfg.Guide.Tips,
		KeyPrecision:     cfg.Cache.CoordinatePrecision,
	}
}

// HTTPServer creates and configures the HTTP server
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         ":" + s.cfg.Server.Port,
		Handler:      s.router,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
}

// SetRouter sets the HTTP router/handler
func (s *Server) SetRouter(router http.Handler) {
	s.router = router
}

// Sessions returns the session manager
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// Enricher returns the metadata enricher, nil when disabled
func (s *Server) Enricher() handlers.Enricher {
	return s.enricher
}

// GetLogger returns the logger instance
func (s *Server) GetLogger() *zap.Logger {
	return s.logger
}

// GetConfig returns the configuration
func (s *Server) GetConfig() *config.Config {
	return s.cfg
}

// Close closes all server resources
func (s *Server) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
}
