package models

import "fmt"

// Coordinates is a WGS 84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f, %.6f", c.Lat, c.Lng)
}

// SearchContext is the per-session state that drives the guide stream.
type SearchContext struct {
	Origin           *Coordinates `json:"origin,omitempty"`
	ActiveArea       string       `json:"active_area"`
	Label            string       `json:"label"`
	RadiusKm         int          `json:"radius_km"`
	LastProcessedKey string       `json:"-"`
}
