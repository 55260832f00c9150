package models

import "strings"

// SourceRef is the URI and title of a citation.
type SourceRef struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// GroundingSource is a citation backing streamed text. Exactly one of Maps or Web
// is set.
type GroundingSource struct {
	Maps *SourceRef `json:"maps,omitempty"`
	Web  *SourceRef `json:"web,omitempty"`
}

func MapsSource(uri, title string) GroundingSource {
	return GroundingSource{Maps: &SourceRef{URI: uri, Title: title}}
}

func WebSource(uri, title string) GroundingSource {
	return GroundingSource{Web: &SourceRef{URI: uri, Title: title}}
}

// Key is the dedup identity of the source: the maps URI when present, else the
// web URI.
func (s GroundingSource) Key() string {
	if s.Maps != nil && s.Maps.URI != "" {
		return s.Maps.URI
	}
	if s.Web != nil {
		return s.Web.URI
	}
	return ""
}

// Title prefers the maps title, like Key prefers the maps URI.
func (s GroundingSource) Title() string {
	if s.Maps != nil && s.Maps.Title != "" {
		return s.Maps.Title
	}
	if s.Web != nil {
		return s.Web.Title
	}
	return ""
}

// Linkable reports whether the source points at an http(s) resource.
func (s GroundingSource) Linkable() bool {
	return strings.HasPrefix(s.Key(), "http")
}

// StreamChunk is one element of a streaming AI response. Text and sources of the
// same step may arrive in the same or in different chunks.
type StreamChunk struct {
	TextDelta string            `json:"text_delta"`
	Sources   []GroundingSource `json:"sources,omitempty"`
	IsFinal   bool              `json:"is_final"`
}
