package cli

import (
	"context"
	"fmt"

	"github.com/FACorreiaa/go-museumradar/internal/app/models"
	"github.com/FACorreiaa/go-museumradar/internal/app/session"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/cache"
	"github.com/FACorreiaa/go-museumradar/internal/server"
)

// apiKey overrides the configured AI key for one command.
var apiKey string

// openSession builds a single in-process session the way the web server
// builds one per browser.
func openSession(ctx context.Context) (*session.Manager, *session.Session, error) {
	store := cache.NewMemoryStore(cfg.Session.TTL, cfg.Cache.MaxBlobBytes)
	m := session.NewManager(server.SessionConfig(cfg), store, server.GeminiBackendFactory(cfg, log), log)
	s, _ := m.GetOrCreate(ctx, "")
	if apiKey != "" {
		if err := s.Keyring.Select(apiKey); err != nil {
			m.Close(s.ID)
			return nil, nil, err
		}
	}
	if !s.Keyring.HasActiveCredential() {
		m.Close(s.ID)
		return nil, nil, fmt.Errorf("%w: set GEMINI_API_KEY or pass --key", models.ErrCredentialMissing)
	}
	return m, s, nil
}
