package normalizer

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-museumradar/internal/app/models"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/geo"
)

const (
	DefaultName         = "Museum"
	DefaultImageTerm    = "museum,art"
	DefaultImageBaseURL = "https://source.unsplash.com/featured/800x600"
)

// Options controls the distance filter and image URL construction.
type Options struct {
	MaxDistanceKm float64
	ToleranceKm   float64
	ImageBaseURL  string
}

func DefaultOptions() Options {
	return Options{
		MaxDistanceKm: 50,
		ToleranceKm:   0.1,
		ImageBaseURL:  DefaultImageBaseURL,
	}
}

// Normalizer turns raw AI records into canonical museums.
type Normalizer struct {
	opts  Options
	newID func() string
}

func New(opts Options) *Normalizer {
	d := DefaultOptions()
	if opts.MaxDistanceKm <= 0 {
		opts.MaxDistanceKm = d.MaxDistanceKm
	}
	if opts.ToleranceKm < 0 {
		opts.ToleranceKm = d.ToleranceKm
	}
	if opts.ImageBaseURL == "" {
		opts.ImageBaseURL = d.ImageBaseURL
	}
	return &Normalizer{opts: opts, newID: uuid.NewString}
}

var defaultNormalizer = New(DefaultOptions())

// Normalize converts raw records with the default options.
func Normalize(raw []models.RawMuseum, origin *models.Coordinates) ([]models.Museum, error) {
	return defaultNormalizer.Normalize(raw, origin)
}

// Normalize maps every record to a Museum, computes its distance from origin
// when both positions are known and drops museums beyond the distance limit.
// Order is preserved. An empty result reports ErrNoResultsInArea when nothing
// came in and ErrNoResultsAfterDistanceFilter when everything was too far.
func (n *Normalizer) Normalize(raw []models.RawMuseum, origin *models.Coordinates) ([]models.Museum, error) {
	if len(raw) == 0 {
		return nil, models.ErrNoResultsInArea
	}

	limit := n.opts.MaxDistanceKm + n.opts.ToleranceKm
	museums := make([]models.Museum, 0, len(raw))
	for idx, r := range raw {
		m := n.museum(idx, r)
		if origin != nil && m.Lat != nil && m.Lng != nil {
			d := geo.Distance(origin.Lat, origin.Lng, *m.Lat, *m.Lng)
			if d > limit {
				continue
			}
			m.Distance = &d
		}
		museums = append(museums, m)
	}

	if len(museums) == 0 {
		return nil, fmt.Errorf("%w: all %d results beyond %.0f km", models.ErrNoResultsAfterDistanceFilter, len(raw), n.opts.MaxDistanceKm)
	}
	return museums, nil
}

func (n *Normalizer) museum(idx int, r models.RawMuseum) models.Museum {
	term := strings.TrimSpace(deref(r.ImageTerm))
	if term == "" {
		term = DefaultImageTerm
	}
	website := strings.TrimSpace(deref(r.Website))
	if website == "" {
		website = models.WebsiteUnknown
	}
	name := strings.TrimSpace(deref(r.Name))
	if name == "" {
		name = DefaultName
	}
	highlights := make([]string, 0, len(r.Highlights))
	highlights = append(highlights, r.Highlights...)

	m := models.Museum{
		ID:                n.newID(),
		Name:              name,
		City:              deref(r.City),
		Country:           deref(r.Country),
		Description:       deref(r.Description),
		Type:              deref(r.Type),
		ImageURL:          n.imageURL(term, idx),
		ImageSearchTerm:   term,
		Website:           website,
		HighlightArtworks: highlights,
	}
	if c, ok := r.Coordinates(); ok {
		lat, lng := c.Lat, c.Lng
		m.Lat, m.Lng = &lat, &lng
	}
	return m
}

// imageURL keys the placeholder image on the search term; sig varies it per
// position so cards in one list do not repeat.
func (n *Normalizer) imageURL(term string, idx int) string {
	return fmt.Sprintf("%s?%s&sig=%d", n.opts.ImageBaseURL, url.PathEscape(term), idx)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
