package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-museumradar/internal/app/domain/credentials"
	"github.com/FACorreiaa/go-museumradar/internal/app/domain/location"
	"github.com/FACorreiaa/go-museumradar/internal/app/domain/search"
	"github.com/FACorreiaa/go-museumradar/internal/app/models"
)

// Enricher adds catalog metadata and a preview image to a museum.
// *enrichment.Client implements it.
type Enricher interface {
	Detail(ctx context.Context, museum models.Museum, origin *models.Coordinates, websiteLive bool) models.MuseumDetail
}

// SessionCounter reports how many sessions are live.
type SessionCounter interface {
	Len() int
}

type DiscoveryHandlers struct {
	*BaseHandler
	sessions SessionCounter
	enricher Enricher
}

// NewDiscoveryHandlers wires the JSON endpoints. enricher may be nil, in which
// case detail views carry only what the search produced.
func NewDiscoveryHandlers(base *BaseHandler, sessions SessionCounter, enricher Enricher) *DiscoveryHandlers {
	return &DiscoveryHandlers{
		BaseHandler: base,
		sessions:    sessions,
		enricher:    enricher,
	}
}

func (h *DiscoveryHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": h.sessions.Len(),
	})
}

type credentialRequest struct {
	APIKey string `json:"api_key"`
}

type credentialResponse struct {
	Source credentials.Source `json:"source"`
	Active bool               `json:"active"`
}

// SelectCredential sets the session's own AI key. An empty key falls back to
// the server key, if any.
func (h *DiscoveryHandlers) SelectCredential(c *gin.Context) {
	s, ok := h.Session(c)
	if !ok {
		return
	}
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Fail(c, fmt.Errorf("%w: %v", models.ErrBadRequest, err))
		return
	}

	if strings.TrimSpace(req.APIKey) == "" {
		s.Keyring.Clear()
	} else if err := s.Keyring.Select(req.APIKey); err != nil {
		h.Fail(c, err)
		return
	}

	h.Logger.Info("Credential selected",
		zap.String("session_id", s.ID),
		zap.String("source", string(s.Keyring.Source())),
	)
	c.JSON(http.StatusOK, credentialResponse{
		Source: s.Keyring.Source(),
		Active: s.Keyring.HasActiveCredential(),
	})
}

// searchRequest carries either a place name or the position fix the browser
// obtained.
type searchRequest struct {
	Place    string        `json:"place"`
	Location *location.Fix `json:"location"`
}

type searchResponse struct {
	search.View
	Error string `json:"error,omitempty"`
}

// Search runs one discovery search and answers with the resulting view. Flow
// failures still carry the view so the client can render the message.
func (h *DiscoveryHandlers) Search(c *gin.Context) {
	s, ok := h.Session(c)
	if !ok {
		return
	}
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Fail(c, fmt.Errorf("%w: %v", models.ErrBadRequest, err))
		return
	}

	var intent search.Intent
	switch {
	case strings.TrimSpace(req.Place) != "":
		intent = search.ByPlace(req.Place)
	case req.Location != nil:
		intent = search.ByLocation(location.ClientLocator{Fix: *req.Location})
	default:
		h.Fail(c, fmt.Errorf("%w: place or location required", models.ErrBadRequest))
		return
	}

	view, err := s.Orchestrator.BeginSearch(c.Request.Context(), intent)
	if errors.Is(err, models.ErrBadRequest) {
		h.Fail(c, err)
		return
	}
	if err != nil {
		_ = c.Error(err)
	}
	c.JSON(statusFor(err), searchResponse{View: view, Error: models.UserMessage(err)})
}

func (h *DiscoveryHandlers) Reset(c *gin.Context) {
	s, ok := h.Session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Orchestrator.Reset())
}

type stateResponse struct {
	View       search.View        `json:"view"`
	Guide      search.GuideUpdate `json:"guide"`
	Credential credentialResponse `json:"credential"`
}

// State returns everything the page needs to render after a reload.
func (h *DiscoveryHandlers) State(c *gin.Context) {
	s, ok := h.Session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, stateResponse{
		View:  s.Orchestrator.View(),
		Guide: s.Orchestrator.Guide(),
		Credential: credentialResponse{
			Source: s.Keyring.Source(),
			Active: s.Keyring.HasActiveCredential(),
		},
	})
}

type radiusRequest struct {
	RadiusKm *int `json:"radius_km" binding:"required"`
}

type radiusResponse struct {
	RadiusKm int `json:"radius_km"`
}

// SetRadius changes the guide radius. The guide restarts after the debounce
// delay.
func (h *DiscoveryHandlers) SetRadius(c *gin.Context) {
	s, ok := h.Session(c)
	if !ok {
		return
	}
	var req radiusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Fail(c, fmt.Errorf("%w: %v", models.ErrBadRequest, err))
		return
	}
	c.JSON(http.StatusOK, radiusResponse{RadiusKm: s.Orchestrator.SetRadius(*req.RadiusKm)})
}

// MuseumDetail returns the detail view of a museum from the current results.
func (h *DiscoveryHandlers) MuseumDetail(c *gin.Context) {
	s, ok := h.Session(c)
	if !ok {
		return
	}
	id := c.Param("id")
	museum, origin, found := s.Orchestrator.Museum(id)
	if !found {
		h.Fail(c, fmt.Errorf("%w: museum %s", models.ErrNotFound, id))
		return
	}

	live := s.Gateway.IsLiveWebsite(museum.Website)
	if h.enricher == nil {
		c.JSON(http.StatusOK, models.MuseumDetail{
			Museum:       museum,
			Origin:       origin,
			WebsiteLive:  live,
			PreviewImage: museum.ImageURL,
		})
		return
	}
	c.JSON(http.StatusOK, h.enricher.Detail(c.Request.Context(), museum, origin, live))
}
