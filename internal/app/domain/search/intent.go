package search

import (
	"context"

	"github.com/FACorreiaa/go-museumradar/internal/app/models"
)

// CredentialProvider reports whether an AI credential is selected.
type CredentialProvider interface {
	HasActiveCredential() bool
}

// Geolocator yields the device position. Implementations must honour ctx and
// report failures as ErrGeoDenied, ErrGeoTimeout or ErrGeoUnavailable.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (models.Coordinates, error)
}

// Intent is what the user asked to search for.
type Intent struct {
	locator Geolocator
	place   string
}

// ByLocation searches around the position locator reports.
func ByLocation(locator Geolocator) Intent {
	return Intent{locator: locator}
}

// ByPlace searches a named city or region.
func ByPlace(name string) Intent {
	return Intent{place: name}
}

func (i Intent) byLocation() bool { return i.locator != nil }

func (i Intent) kind() string {
	if i.byLocation() {
		return "location"
	}
	return "place"
}
