package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/FACorreiaa/go-museumradar/internal/app/domain/credentials"
	"github.com/FACorreiaa/go-museumradar/internal/app/domain/gateway"
	"github.com/FACorreiaa/go-museumradar/internal/app/domain/search"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/cache"
)

const updateBuffer = 32

// Session bundles the per-browser state: its credential, its response cache
// and the gateway and orchestrator built on them.
type Session struct {
	ID           string
	Keyring      *credentials.Keyring
	Cache        *cache.ResponseCache
	Gateway      *gateway.Gateway
	Orchestrator *search.Orchestrator
	CreatedAt    time.Time

	lastSeen atomic.Int64
	updates  chan search.GuideUpdate
	done     chan struct{}
	mu       sync.Mutex
	closed   bool
}

// Updates delivers guide panel changes. When the reader falls behind the
// oldest pending update is dropped; every update supersedes the previous one.
func (s *Session) Updates() <-chan search.GuideUpdate {
	return s.updates
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) publish(u search.GuideUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.updates <- u:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()
	s.Orchestrator.Close()
}
