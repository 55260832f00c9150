package credentials

import (
	"fmt"
	"strings"
	"sync"

	"github.com/FACorreiaa/go-museumradar/internal/app/models"
)

// Source tells where the active key comes from.
type Source string

const (
	SourceNone    Source = "none"
	SourceSession Source = "session"
	SourceServer  Source = "server"
)

const minKeyLength = 10

// Keyring holds the AI key one session selected, falling back to the key the
// server was configured with.
type Keyring struct {
	mu       sync.RWMutex
	selected string
	fallback string
}

func NewKeyring(fallback string) *Keyring {
	return &Keyring{fallback: strings.TrimSpace(fallback)}
}

// Select makes key the session's active credential.
func (k *Keyring) Select(key string) error {
	key = strings.TrimSpace(key)
	if len(key) < minKeyLength || strings.ContainsAny(key, " \t\r\n") {
		return fmt.Errorf("%w: api key looks malformed", models.ErrBadRequest)
	}
	k.mu.Lock()
	k.selected = key
	k.mu.Unlock()
	return nil
}

// Clear forgets the session key; the server key, if any, applies again.
func (k *Keyring) Clear() {
	k.mu.Lock()
	k.selected = ""
	k.mu.Unlock()
}

func (k *Keyring) ActiveKey() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.selected != "" {
		return k.selected
	}
	return k.fallback
}

func (k *Keyring) HasActiveCredential() bool {
	return k.ActiveKey() != ""
}

func (k *Keyring) Source() Source {
	k.mu.RLock()
	defer k.mu.RUnlock()
	switch {
	case k.selected != "":
		return SourceSession
	case k.fallback != "":
		return SourceServer
	default:
		return SourceNone
	}
}
