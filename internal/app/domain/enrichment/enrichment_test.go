package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-museumradar/internal/app/models"
)

const rijksItem = `{
	"itemsCount": 1,
	"items": [{
		"id": "/90402/SK_C_5",
		"guid": "https://www.europeana.eu/item/90402/SK_C_5",
		"title": ["The Night Watch", "Schutters van wijk II"],
		"country": ["Netherlands"],
		"edmPlaceLabel": [{"def": "Amsterdam"}],
		"edmPreview": ["https://api.europeana.eu/thumbnail/v2/url.json?uri=nightwatch"],
		"pl_wgs84_pos_lat": ["52.36"],
		"pl_wgs84_pos_long": ["4.885"],
		"dataProvider": ["Rijksmuseum"]
	}]
}`

func newEuropeana(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL, HTTPClient: srv.Client()}, nil), srv
}

func TestLookupMuseum(t *testing.T) {
	c, _ := newEuropeana(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "api2demo", r.URL.Query().Get("wskey"))
		assert.Equal(t, `"Rijksmuseum" AND "Amsterdam"`, r.URL.Query().Get("query"))
		assert.Equal(t, "1", r.URL.Query().Get("rows"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, rijksItem)
	})

	m, err := c.LookupMuseum(context.Background(), "Rijksmuseum", "Amsterdam")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Rijksmuseum", m.Name)
	assert.Equal(t, "Amsterdam", m.City)
	assert.Equal(t, "Netherlands", m.Country)
	assert.Equal(t, "https://www.europeana.eu/item/90402/SK_C_5", m.Website)
	assert.Equal(t, []string{"The Night Watch", "Schutters van wijk II"}, m.HighlightArtworks)
	assert.Contains(t, m.Description, "The Night Watch")
	require.NotNil(t, m.Lat)
	assert.InDelta(t, 52.36, *m.Lat, 1e-9)
	assert.InDelta(t, 4.885, *m.Lng, 1e-9)
}

func TestLookupMuseumRetriesWithoutCity(t *testing.T) {
	var calls atomic.Int32
	c, _ := newEuropeana(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if strings.Contains(r.URL.Query().Get("query"), "AND") {
			fmt.Fprint(w, `{"itemsCount": 0, "items": []}`)
			return
		}
		fmt.Fprint(w, rijksItem)
	})

	m, err := c.LookupMuseum(context.Background(), "Rijksmuseum", "Amsterdamm")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLookupMuseumMisses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no items", body: `{"itemsCount": 0}`},
		{name: "no http website", body: `{"items": [{"id": "x", "guid": "urn:x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newEuropeana(t, func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, tt.body)
			})
			m, err := c.LookupMuseum(context.Background(), "Nowhere", "")
			require.NoError(t, err)
			assert.Nil(t, m)
		})
	}
}

func TestLookupMuseumErrors(t *testing.T) {
	c, _ := newEuropeana(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := c.LookupMuseum(context.Background(), "Rijksmuseum", "")
	assert.Error(t, err)

	c, _ = newEuropeana(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>")
	})
	_, err = c.LookupMuseum(context.Background(), "Rijksmuseum", "")
	assert.Error(t, err)
}

func TestSearchMuseums(t *testing.T) {
	c, _ := newEuropeana(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "what:museum AND (Delft)", r.URL.Query().Get("query"))
		assert.Equal(t, "12", r.URL.Query().Get("rows"))
		fmt.Fprint(w, `{"items": [
			{"id": "1", "guid": "https://a.eu/1", "dataProvider": ["Prinsenhof"], "pl_wgs84_pos_lat": [52.01], "pl_wgs84_pos_long": [4.36]},
			{"id": "2", "guid": "urn:no-link", "title": ["Skipped"]},
			{"id": "3", "guid": "https://a.eu/3", "title": ["Delftware"]}
		]}`)
	})

	museums, err := c.SearchMuseums(context.Background(), "Delft")
	require.NoError(t, err)
	require.Len(t, museums, 2)
	assert.Equal(t, "Prinsenhof", museums[0].Name)
	require.NotNil(t, museums[0].Lat)
	assert.InDelta(t, 52.01, *museums[0].Lat, 1e-9)
	assert.Equal(t, "Delftware", museums[1].Name)
	assert.Equal(t, "Europe", museums[1].Country)
	assert.Nil(t, museums[1].Lat)
}

func TestPreviewImage(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{name: "absolute og image", html: `<meta property="og:image" content="https://cdn.museum.nl/hero.jpg">`, want: "https://cdn.museum.nl/hero.jpg"},
		{name: "relative og image", html: `<meta property="og:image" content="/img/hero.jpg">`, want: "/img/hero.jpg"},
		{name: "twitter fallback", html: `<meta name="twitter:image" content="https://cdn.museum.nl/tw.jpg">`, want: "https://cdn.museum.nl/tw.jpg"},
		{name: "none", html: `<title>Museum</title>`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				fmt.Fprintf(w, "<html><head>%s</head><body></body></html>", tt.html)
			}))
			defer srv.Close()
			c := NewClient(Options{HTTPClient: srv.Client()}, nil)

			got, err := c.PreviewImage(context.Background(), srv.URL+"/collection")
			require.NoError(t, err)
			want := tt.want
			if strings.HasPrefix(want, "/") {
				want = srv.URL + want
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestPreviewImageRejectsNonHTTP(t *testing.T) {
	c := NewClient(Options{}, nil)
	_, err := c.PreviewImage(context.Background(), "#")
	assert.Error(t, err)
}

func TestDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, rijksItem)
	})
	mux.HandleFunc("/site", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><meta property="og:image" content="/hero.jpg"></head></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := NewClient(Options{BaseURL: srv.URL + "/search", HTTPClient: srv.Client()}, nil)

	museum := models.Museum{ID: "m1", Name: "Rijksmuseum", City: "Amsterdam", Website: srv.URL + "/site", ImageURL: "https://placeholder/img"}
	origin := &models.Coordinates{Lat: 52.37, Lng: 4.89}

	detail := c.Detail(context.Background(), museum, origin, true)
	assert.Equal(t, museum, detail.Museum)
	assert.Equal(t, origin, detail.Origin)
	assert.True(t, detail.WebsiteLive)
	assert.Equal(t, srv.URL+"/hero.jpg", detail.PreviewImage)
	require.NotNil(t, detail.Catalog)
	assert.Equal(t, "Netherlands", detail.Catalog.Country)
}

func TestDetailDegradesToPlaceholders(t *testing.T) {
	c, _ := newEuropeana(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	museum := models.Museum{ID: "m1", Name: "Rijksmuseum", Website: "#", ImageURL: "https://placeholder/img"}

	detail := c.Detail(context.Background(), museum, nil, false)
	assert.Nil(t, detail.Catalog)
	assert.False(t, detail.WebsiteLive)
	assert.Equal(t, "https://placeholder/img", detail.PreviewImage)
}
