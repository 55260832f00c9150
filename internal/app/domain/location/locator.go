package location

import (
	"context"
	"fmt"

	"github.com/FACorreiaa/go-museumradar/internal/app/models"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/geo"
)

// Fix is the outcome of a position request as reported by the client, which
// owns the device sensors. Exactly one of Position, Denied or Reason is
// expected.
type Fix struct {
	Position *models.Coordinates `json:"position,omitempty"`
	Denied   bool                `json:"denied,omitempty"`
	Reason   string              `json:"reason,omitempty"`
}

// ClientLocator replays a fix the client already obtained.
type ClientLocator struct {
	Fix Fix
}

func (l ClientLocator) CurrentPosition(ctx context.Context) (models.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: %v", models.ErrGeoTimeout, err)
	}
	switch {
	case l.Fix.Denied:
		return models.Coordinates{}, models.ErrGeoDenied
	case l.Fix.Position == nil:
		reason := l.Fix.Reason
		if reason == "" {
			reason = "no position supplied"
		}
		return models.Coordinates{}, fmt.Errorf("%w: %s", models.ErrGeoUnavailable, reason)
	case !geo.ValidateCoordinates(l.Fix.Position.Lat, l.Fix.Position.Lng):
		return models.Coordinates{}, fmt.Errorf("%w: position %s out of range", models.ErrGeoUnavailable, *l.Fix.Position)
	}
	return *l.Fix.Position, nil
}

// Static always reports the same position. The CLI uses it for --lat/--lng.
func Static(lat, lng float64) ClientLocator {
	return ClientLocator{Fix: Fix{Position: &models.Coordinates{Lat: lat, Lng: lng}}}
}
