package gateway

import (
	"context"
	"iter"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-museumradar/internal/app/models"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/geo"
)

// CityForCoordinates resolves the city or municipality at a position. Any
// failure is logged and reported as absent; a missing label never fails a
// search.
func (g *Gateway) CityForCoordinates(ctx context.Context, lat, lng float64) (string, bool) {
	ctx, span := otel.Tracer("AIGateway").Start(ctx, "CityForCoordinates", trace.WithAttributes(
		attribute.Float64("latitude", lat),
		attribute.Float64("longitude", lng),
	))
	defer span.End()
	l := g.logger.With(zap.String("method", "CityForCoordinates"))

	key := g.keys.City(lat, lng)
	var city string
	if g.cacheGet(ctx, key, &city) && city != "" {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return city, true
	}

	text, err := g.generate(ctx, cityPrompt(lat, lng), &genai.GenerateContentConfig{
		ThinkingConfig: noThinking(),
	}, g.opts.CityTimeout)
	if err != nil {
		l.Warn("City lookup failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "City lookup failed")
		return "", false
	}

	city = strings.TrimSpace(text)
	if city == "" {
		l.Debug("City lookup returned no name")
		return "", false
	}
	g.cachePut(ctx, key, city)
	span.SetStatus(codes.Ok, "City resolved")
	return city, true
}

// MuseumsNearCoordinates asks for museums within the configured radius of a
// position. Records without a usable website are dropped.
func (g *Gateway) MuseumsNearCoordinates(ctx context.Context, lat, lng float64) ([]models.RawMuseum, error) {
	ctx, span := otel.Tracer("AIGateway").Start(ctx, "MuseumsNearCoordinates", trace.WithAttributes(
		attribute.Float64("latitude", lat),
		attribute.Float64("longitude", lng),
	))
	defer span.End()

	prompt := nearbyMuseumsPrompt(lat, lng, g.opts.MuseumCount, g.opts.MaxDistanceKm, g.opts.Language)
	museums, err := g.discover(ctx, g.keys.NearbyMuseums(lat, lng), prompt,
		g.logger.With(zap.String("method", "MuseumsNearCoordinates")))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Discovery failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("museums.count", len(museums)))
	span.SetStatus(codes.Ok, "Museums found")
	return museums, nil
}

// MuseumsInPlace asks for museums in or right next to a named place.
func (g *Gateway) MuseumsInPlace(ctx context.Context, place string) ([]models.RawMuseum, error) {
	ctx, span := otel.Tracer("AIGateway").Start(ctx, "MuseumsInPlace", trace.WithAttributes(
		attribute.String("place", place),
	))
	defer span.End()

	prompt := placeMuseumsPrompt(strings.TrimSpace(place), g.opts.MuseumCount, g.opts.PlaceRadiusKm, g.opts.MaxDistanceKm, g.opts.Language)
	museums, err := g.discover(ctx, g.keys.PlaceMuseums(place), prompt,
		g.logger.With(zap.String("method", "MuseumsInPlace")))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Discovery failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("museums.count", len(museums)))
	span.SetStatus(codes.Ok, "Museums found")
	return museums, nil
}

func (g *Gateway) discover(ctx context.Context, key, prompt string, l *zap.Logger) ([]models.RawMuseum, error) {
	var museums []models.RawMuseum
	if g.cacheGet(ctx, key, &museums) && len(museums) > 0 {
		l.Debug("Serving museums from cache", zap.String("key", key))
		return museums, nil
	}

	var raw []models.RawMuseum
	if err := g.Query(ctx, prompt, MuseumListSchema, g.opts.DiscoveryTimeout, &raw); err != nil {
		l.Error("Museum discovery failed", zap.Error(err))
		return nil, err
	}

	museums = g.keepLinkable(raw)
	l.Info("Museum discovery finished",
		zap.Int("returned", len(raw)),
		zap.Int("kept", len(museums)))
	if len(museums) > 0 {
		g.cachePut(ctx, key, museums)
	}
	return museums, nil
}

// keepLinkable drops records without a usable website and clears coordinates
// that cannot be a real museum position.
func (g *Gateway) keepLinkable(raw []models.RawMuseum) []models.RawMuseum {
	kept := make([]models.RawMuseum, 0, len(raw))
	for _, m := range raw {
		if m.Website == nil || !g.IsLiveWebsite(*m.Website) {
			continue
		}
		if c, ok := m.Coordinates(); !ok || !geo.HasValidCoordinates(c.Lat, c.Lng) {
			m.Lat, m.Lng = nil, nil
		}
		kept = append(kept, m)
	}
	return kept
}

// ActivitiesGuideStream streams grounded activity tips around a location.
func (g *Gateway) ActivitiesGuideStream(ctx context.Context, topic, locationLabel string, radiusKm int) iter.Seq2[models.StreamChunk, error] {
	return g.Stream(ctx, activitiesPrompt(topic, locationLabel, radiusKm, g.opts.Tips, g.opts.Language))
}

// FreeTextQueryStream streams a grounded answer to a free-text question.
func (g *Gateway) FreeTextQueryStream(ctx context.Context, question string) iter.Seq2[models.StreamChunk, error] {
	return g.Stream(ctx, questionPrompt(question, g.opts.Language))
}

func (g *Gateway) cacheGet(ctx context.Context, key string, out any) bool {
	if g.cache == nil {
		return false
	}
	return g.cache.Get(ctx, key, out)
}

func (g *Gateway) cachePut(ctx context.Context, key string, value any) {
	if g.cache == nil {
		return
	}
	g.cache.Put(ctx, key, value)
}
