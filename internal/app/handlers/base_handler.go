package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-museumradar/internal/app/middleware"
	"github.com/FACorreiaa/go-museumradar/internal/app/models"
	"github.com/FACorreiaa/go-museumradar/internal/app/session"
)

type BaseHandler struct {
	Logger *zap.Logger
}

func NewBaseHandler(logger *zap.Logger) *BaseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaseHandler{Logger: logger}
}

type errorResponse struct {
	Error    string `json:"error"`
	NeedsKey bool   `json:"needs_key,omitempty"`
}

// statusFor maps a flow error to the HTTP status it is reported with.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrCredentialMissing):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrGeoDenied), errors.Is(err, models.ErrGeoTimeout), errors.Is(err, models.ErrGeoUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrNoResultsInArea), errors.Is(err, models.ErrNoResultsAfterDistanceFilter):
		return http.StatusOK
	default:
		return http.StatusBadGateway
	}
}

// Fail writes err as a JSON error. Only the user-facing message leaves the
// process.
func (h *BaseHandler) Fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := models.UserMessage(err)
	if errors.Is(err, models.ErrBadRequest) || errors.Is(err, models.ErrNotFound) {
		msg = err.Error()
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{
		Error:    msg,
		NeedsKey: errors.Is(err, models.ErrCredentialMissing),
	})
}

// Session returns the request's browsing session, failing the request when the
// session middleware did not run.
func (h *BaseHandler) Session(c *gin.Context) (*session.Session, bool) {
	s := middleware.SessionFromContext(c)
	if s == nil {
		h.Logger.Error("Session middleware missing", zap.String("path", c.FullPath()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "session unavailable"})
		return nil, false
	}
	return s, true
}
