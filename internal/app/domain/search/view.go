package search

import (
	"fmt"
	"html/template"

	"github.com/FACorreiaa/go-museumradar/internal/app/domain/guide"
	"github.com/FACorreiaa/go-museumradar/internal/app/models"
)

// State is the discovery state of a session.
type State int

const (
	StateIdle State = iota
	StateSearching
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "searching":
		*s = StateSearching
	case "ready":
		*s = StateReady
	default:
		return fmt.Errorf("unknown search state %q", text)
	}
	return nil
}

// View is what the result grid renders.
type View struct {
	State          State                `json:"state"`
	Museums        []models.Museum      `json:"museums"`
	Message        string               `json:"message,omitempty"`
	LoadingMessage string               `json:"loading_message,omitempty"`
	Context        models.SearchContext `json:"context"`
	NeedsKey       bool                 `json:"needs_key"`
}

// GuideUpdate is what the guide panel renders. Every update supersedes the
// previous one with the same or an older key.
type GuideUpdate struct {
	Key      string         `json:"key"`
	Area     string         `json:"area"`
	RadiusKm int            `json:"radius_km"`
	Snapshot guide.Snapshot `json:"snapshot"`
	HTML     template.HTML  `json:"html"`
	Loading  bool           `json:"loading"`
	Notice   string         `json:"notice,omitempty"`
}
