package enrichment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-museumradar/internal/app/models"
)

const (
	DefaultBaseURL = "https://api.europeana.eu/record/v2/search.json"
	DefaultAPIKey  = "api2demo"

	maxResponseBytes = 2 << 20
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client reads museum metadata from the Europeana search API and preview
// images from museum websites.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	logger  *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.APIKey == "" {
		opts.APIKey = DefaultAPIKey
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		http:    httpClient,
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		logger:  logger,
	}
}

// LookupMuseum finds the catalog record of a museum by name, narrowed to city
// when given. A miss with city retries without it. Records without an http
// website are not returned. (nil, nil) means nothing was found.
func (c *Client) LookupMuseum(ctx context.Context, name, city string) (*models.Museum, error) {
	ctx, span := otel.Tracer("EuropeanaClient").Start(ctx, "LookupMuseum", trace.WithAttributes(
		attribute.String("museum.name", name),
		attribute.String("museum.city", city),
	))
	defer span.End()

	query := fmt.Sprintf("%q", name)
	if city != "" {
		query = fmt.Sprintf("%q AND %q", name, city)
	}
	body, err := c.search(ctx, query, 1)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Europeana search failed")
		return nil, err
	}

	items := gjson.GetBytes(body, "items")
	if !items.IsArray() || len(items.Array()) == 0 {
		if city != "" {
			return c.LookupMuseum(ctx, name, "")
		}
		span.SetStatus(codes.Ok, "No record")
		return nil, nil
	}

	item := items.Array()[0]
	website := item.Get("guid").String()
	if !strings.HasPrefix(website, "http") {
		span.SetStatus(codes.Ok, "Record without website")
		return nil, nil
	}

	m := itemToMuseum(item)
	m.Name = name
	if title := item.Get("title.0").String(); title != "" {
		m.Description = "Collection found via Europeana. Includes " + title + "."
	} else {
		m.Description = "Collection found via Europeana."
	}
	if m.City == "" {
		m.City = city
	}
	span.SetStatus(codes.Ok, "Record found")
	return &m, nil
}

// SearchMuseums runs a free-text museum search and returns the records with an
// http website.
func (c *Client) SearchMuseums(ctx context.Context, query string) ([]models.Museum, error) {
	ctx, span := otel.Tracer("EuropeanaClient").Start(ctx, "SearchMuseums", trace.WithAttributes(
		attribute.String("query", query),
	))
	defer span.End()

	body, err := c.search(ctx, fmt.Sprintf("what:museum AND (%s)", query), 12)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Europeana search failed")
		return nil, err
	}

	var museums []models.Museum
	gjson.GetBytes(body, "items").ForEach(func(_, item gjson.Result) bool {
		if !strings.HasPrefix(item.Get("guid").String(), "http") {
			return true
		}
		m := itemToMuseum(item)
		m.Name = firstNonEmpty(item.Get("dataProvider.0").String(), item.Get("title.0").String(), "Museum")
		m.Description = "Part of the Europeana collection."
		museums = append(museums, m)
		return true
	})
	span.SetAttributes(attribute.Int("museums.count", len(museums)))
	span.SetStatus(codes.Ok, "Search finished")
	return museums, nil
}

func (c *Client) search(ctx context.Context, query string, rows int) ([]byte, error) {
	params := url.Values{}
	params.Set("wskey", c.apiKey)
	params.Set("query", query)
	params.Set("profile", "standard")
	params.Set("rows", strconv.Itoa(rows))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build europeana request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("europeana request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("europeana returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read europeana response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("europeana returned invalid JSON")
	}
	return body, nil
}

func itemToMuseum(item gjson.Result) models.Museum {
	m := models.Museum{
		ID:       "europeana:" + item.Get("id").String(),
		City:     firstNonEmpty(item.Get("edmPlaceLabel.0.def").String(), item.Get("country.0").String()),
		Country:  firstNonEmpty(item.Get("country.0").String(), "Europe"),
		ImageURL: item.Get("edmPreview.0").String(),
		Website:  item.Get("guid").String(),
	}
	for _, t := range item.Get("title").Array() {
		if s := t.String(); s != "" {
			m.HighlightArtworks = append(m.HighlightArtworks, s)
		}
	}
	if lat, ok := parseCoordinate(item.Get("pl_wgs84_pos_lat.0")); ok {
		if lng, ok := parseCoordinate(item.Get("pl_wgs84_pos_long.0")); ok {
			m.Lat, m.Lng = &lat, &lng
		}
	}
	return m
}

// parseCoordinate accepts both string and numeric JSON values.
func parseCoordinate(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Float(), true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
