package normalizer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-museumradar/internal/app/models"
)

func str(s string) *string   { return &s }
func num(f float64) *float64 { return &f }
func at(lat, lng float64) *models.Coordinates {
	return &models.Coordinates{Lat: lat, Lng: lng}
}

func TestNormalizeFallbacks(t *testing.T) {
	museums, err := Normalize([]models.RawMuseum{{}}, nil)
	require.NoError(t, err)
	require.Len(t, museums, 1)

	m := museums[0]
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "Museum", m.Name)
	assert.Equal(t, "", m.City)
	assert.Equal(t, "", m.Country)
	assert.Equal(t, "", m.Description)
	assert.Equal(t, "#", m.Website)
	assert.Equal(t, "https://source.unsplash.com/featured/800x600?museum%2Cart&sig=0", m.ImageURL)
	assert.Empty(t, m.HighlightArtworks)
	assert.Nil(t, m.Distance)
	assert.Nil(t, m.Lat)
}

func TestNormalizeMapsFields(t *testing.T) {
	raw := []models.RawMuseum{{
		Name:        str("Rijksmuseum"),
		City:        str("Amsterdam"),
		Country:     str("Netherlands"),
		Description: str("Dutch masters"),
		Website:     str("https://www.rijksmuseum.nl"),
		Type:        str("Art"),
		ImageTerm:   str("rijksmuseum amsterdam"),
		Lat:         num(52.36),
		Lng:         num(4.885),
		Highlights:  []string{"The Night Watch", "The Milkmaid"},
	}}

	museums, err := Normalize(raw, at(52.3731, 4.8922))
	require.NoError(t, err)
	m := museums[0]
	assert.Equal(t, "Rijksmuseum", m.Name)
	assert.Equal(t, "https://www.rijksmuseum.nl", m.Website)
	assert.Equal(t, "https://source.unsplash.com/featured/800x600?rijksmuseum%20amsterdam&sig=0", m.ImageURL)
	assert.Equal(t, []string{"The Night Watch", "The Milkmaid"}, m.HighlightArtworks)
	require.NotNil(t, m.Distance)
	assert.InDelta(t, 1.6, *m.Distance, 0.3)
}

func TestNormalizeIDsAreUnique(t *testing.T) {
	raw := make([]models.RawMuseum, 20)
	museums, err := Normalize(raw, nil)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i, m := range museums {
		assert.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
		assert.True(t, strings.HasSuffix(m.ImageURL, fmt.Sprintf("&sig=%d", i)), m.ImageURL)
	}

	again, err := Normalize(raw[:1], nil)
	require.NoError(t, err)
	assert.NotEqual(t, museums[0].ID, again[0].ID)
}

func TestNormalizeDistanceFilter(t *testing.T) {
	amsterdam := at(52.3731, 4.8922)
	raw := []models.RawMuseum{
		{Name: str("Rijksmuseum"), Lat: num(52.36), Lng: num(4.885)},
		{Name: str("Louvre"), Lat: num(48.8606), Lng: num(2.3376)},
		{Name: str("Unknown location")},
		{Name: str("Frans Hals"), Lat: num(52.3781), Lng: num(4.6339)},
	}

	museums, err := Normalize(raw, amsterdam)
	require.NoError(t, err)

	names := make([]string, 0, len(museums))
	for _, m := range museums {
		names = append(names, m.Name)
		if m.Distance != nil {
			assert.LessOrEqual(t, *m.Distance, 50.1)
		}
	}
	assert.Equal(t, []string{"Rijksmuseum", "Unknown location", "Frans Hals"}, names)
}

func TestNormalizeToleranceBoundary(t *testing.T) {
	// 1 degree of latitude is ~111.19 km; 0.4505 degrees is ~50.09 km.
	origin := at(0.5, 10)
	raw := []models.RawMuseum{
		{Name: str("inside tolerance"), Lat: num(0.5 + 0.4505), Lng: num(10)},
		{Name: str("outside"), Lat: num(0.5 + 0.4520), Lng: num(10)},
	}
	museums, err := Normalize(raw, origin)
	require.NoError(t, err)
	require.Len(t, museums, 1)
	assert.Equal(t, "inside tolerance", museums[0].Name)
}

func TestNormalizeWithoutOriginKeepsEverything(t *testing.T) {
	raw := []models.RawMuseum{
		{Name: str("Louvre"), Lat: num(48.8606), Lng: num(2.3376)},
	}
	museums, err := Normalize(raw, nil)
	require.NoError(t, err)
	require.Len(t, museums, 1)
	assert.Nil(t, museums[0].Distance)
}

func TestNormalizeErrors(t *testing.T) {
	_, err := Normalize(nil, at(52.37, 4.89))
	assert.ErrorIs(t, err, models.ErrNoResultsInArea)
	assert.Equal(t, models.MessageNoMuseumsInArea, models.UserMessage(err))

	_, err = Normalize([]models.RawMuseum{{Name: str("Louvre"), Lat: num(48.8606), Lng: num(2.3376)}}, at(52.37, 4.89))
	assert.ErrorIs(t, err, models.ErrNoResultsAfterDistanceFilter)
	assert.Equal(t, models.MessageNoMuseumsRadius, models.UserMessage(err))
}

func TestNormalizeDoesNotAliasInput(t *testing.T) {
	raw := []models.RawMuseum{{Highlights: []string{"a"}}}
	museums, err := Normalize(raw, nil)
	require.NoError(t, err)
	raw[0].Highlights[0] = "changed"
	assert.Equal(t, "a", museums[0].HighlightArtworks[0])
}
