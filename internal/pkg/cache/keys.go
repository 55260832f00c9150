package cache

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/FACorreiaa/go-museumradar/internal/pkg/geo"
)

// DefaultCoordinatePrecision rounds coordinates to 2 decimals, a grid of roughly
// 1 km, so repeated searches from nearly the same spot share entries.
const DefaultCoordinatePrecision = 2

// KeyBuilder builds the composite keys the gateway caches under.
type KeyBuilder struct {
	precision int
}

func NewKeyBuilder(precision int) KeyBuilder {
	if precision < 0 {
		precision = DefaultCoordinatePrecision
	}
	return KeyBuilder{precision: precision}
}

// City is the key of a reverse-geocoded area label.
func (b KeyBuilder) City(lat, lng float64) string {
	return fmt.Sprintf("city-%s-%s", geo.FormatFixed(lat, b.precision), geo.FormatFixed(lng, b.precision))
}

// NearbyMuseums is the key of a discovery query around coordinates.
func (b KeyBuilder) NearbyMuseums(lat, lng float64) string {
	return fmt.Sprintf("coords-m-%s-%s", geo.FormatFixed(lat, b.precision), geo.FormatFixed(lng, b.precision))
}

// PlaceMuseums is the key of a discovery query for a named place.
func (b KeyBuilder) PlaceMuseums(place string) string {
	return "city-m-" + NormalizePlace(place)
}

// NormalizePlace trims, NFC-normalizes, case-folds and collapses inner
// whitespace, so "  Den  Haag" and "den haag" share one key.
func NormalizePlace(place string) string {
	s := norm.NFC.String(strings.TrimSpace(place))
	// a Caser is stateful, so each call gets its own
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}
