package models

// RawMuseum is a museum record as returned by the AI backend. Every field is
// optional; normalization supplies the fallbacks.
type RawMuseum struct {
	Name        *string  `json:"name,omitempty"`
	City        *string  `json:"city,omitempty"`
	Country     *string  `json:"country,omitempty"`
	Description *string  `json:"description,omitempty"`
	Website     *string  `json:"website,omitempty"`
	Type        *string  `json:"type,omitempty"`
	ImageTerm   *string  `json:"imageTerm,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
}

// Coordinates returns the record position when both components are present.
func (r RawMuseum) Coordinates() (Coordinates, bool) {
	if r.Lat == nil || r.Lng == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *r.Lat, Lng: *r.Lng}, true
}

// WebsiteUnknown marks a museum without a usable website.
const WebsiteUnknown = "#"

// Museum is the canonical, immutable museum entity shown to the user.
type Museum struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	City              string   `json:"city"`
	Country           string   `json:"country"`
	Description       string   `json:"description"`
	Type              string   `json:"type"`
	ImageURL          string   `json:"image_url"`
	ImageSearchTerm   string   `json:"image_search_term,omitempty"`
	Website           string   `json:"website"`
	HighlightArtworks []string `json:"highlight_artworks"`
	Lat               *float64 `json:"lat,omitempty"`
	Lng               *float64 `json:"lng,omitempty"`
	Distance          *float64 `json:"distance,omitempty"`
}

// Coordinates returns the museum position when known.
func (m Museum) Coordinates() (Coordinates, bool) {
	if m.Lat == nil || m.Lng == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *m.Lat, Lng: *m.Lng}, true
}

// MuseumDetail is the detail view payload: the museum, the search origin for the
// map widget and whatever the enrichment services could add.
type MuseumDetail struct {
	Museum       Museum       `json:"museum"`
	Origin       *Coordinates `json:"origin,omitempty"`
	WebsiteLive  bool         `json:"website_live"`
	PreviewImage string       `json:"preview_image"`
	Catalog      *Museum      `json:"catalog,omitempty"`
}
