package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-museumradar/internal/app/models"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/cache"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/observability/metrics"
)

// Options tunes the gateway. Zero values fall back to DefaultOptions.
type Options struct {
	CityTimeout       time.Duration
	DiscoveryTimeout  time.Duration
	Temperature       float32
	MuseumCount       int
	MaxDistanceKm     float64
	PlaceRadiusKm     float64
	Language          string
	Tips              int
	KeyPrecision      int
	PlaceholderDomain []string
}

func DefaultOptions() Options {
	return Options{
		CityTimeout:      5 * time.Second,
		DiscoveryTimeout: 25 * time.Second,
		Temperature:      0.1,
		MuseumCount:      8,
		MaxDistanceKm:    50,
		PlaceRadiusKm:    15,
		Language:         "English",
		Tips:             6,
		KeyPrecision:     cache.DefaultCoordinatePrecision,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CityTimeout <= 0 {
		o.CityTimeout = d.CityTimeout
	}
	if o.DiscoveryTimeout <= 0 {
		o.DiscoveryTimeout = d.DiscoveryTimeout
	}
	if o.Temperature < 0 {
		o.Temperature = d.Temperature
	}
	if o.MuseumCount <= 0 {
		o.MuseumCount = d.MuseumCount
	}
	if o.MaxDistanceKm <= 0 {
		o.MaxDistanceKm = d.MaxDistanceKm
	}
	if o.PlaceRadiusKm <= 0 {
		o.PlaceRadiusKm = d.PlaceRadiusKm
	}
	if o.Language == "" {
		o.Language = d.Language
	}
	if o.Tips <= 0 {
		o.Tips = d.Tips
	}
	if len(o.PlaceholderDomain) == 0 {
		o.PlaceholderDomain = placeholderDomains
	}
	return o
}

// Gateway issues the structured and streaming AI queries of one session and
// caches structured replies in that session's ResponseCache.
type Gateway struct {
	backend      Backend
	cache        *cache.ResponseCache
	keys         cache.KeyBuilder
	opts         Options
	placeholders ahocorasick.AhoCorasick
	logger       *zap.Logger
}

// New creates a gateway. responseCache may be nil, in which case nothing is
// cached.
func New(backend Backend, responseCache *cache.ResponseCache, opts Options, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Gateway{
		backend:      backend,
		cache:        responseCache,
		keys:         cache.NewKeyBuilder(opts.KeyPrecision),
		opts:         opts,
		placeholders: newPlaceholderMatcher(opts.PlaceholderDomain),
		logger:       logger,
	}
}

func noThinking() *genai.ThinkingConfig {
	return &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)}
}

type generateResult struct {
	text string
	err  error
}

// generate runs one backend call detached from the caller. When timeout elapses
// first the caller gets ErrAITimeout and the call completes in the background;
// its result is dropped.
func (g *Gateway) generate(ctx context.Context, prompt string, config *genai.GenerateContentConfig, timeout time.Duration) (string, error) {
	start := time.Now()
	done := make(chan generateResult, 1)
	callCtx := context.WithoutCancel(ctx)
	go func() {
		text, err := g.backend.Generate(callCtx, prompt, config)
		done <- generateResult{text: text, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var (
		text string
		err  error
	)
	select {
	case r := <-done:
		text, err = r.text, r.err
		if err != nil && !errors.Is(err, models.ErrCredentialMissing) && !errors.Is(err, models.ErrAITransport) {
			err = fmt.Errorf("%w: %v", models.ErrAITransport, err)
		}
	case <-timer.C:
		err = fmt.Errorf("%w after %s", models.ErrAITimeout, timeout)
	case <-ctx.Done():
		err = ctx.Err()
	}

	m := metrics.Get()
	m.AIRequestDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.Bool("structured", config.ResponseSchema != nil)))
	if err != nil {
		m.AIRequestErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("error", errorKind(err))))
	}
	return text, err
}

// Query sends prompt with schema as the declared response shape, waits at most
// timeout and decodes the validated reply into out.
func (g *Gateway) Query(ctx context.Context, prompt string, schema *Schema, timeout time.Duration, out any) error {
	ctx, span := otel.Tracer("AIGateway").Start(ctx, "Query", trace.WithAttributes(
		attribute.String("schema", schema.name),
		attribute.Int("prompt.length", len(prompt)),
	))
	defer span.End()

	text, err := g.generate(ctx, prompt, &genai.GenerateContentConfig{
		ThinkingConfig:   noThinking(),
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema.model,
	}, timeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Query failed")
		return err
	}

	if err = decodeReply(cleanJSONResponse(text), schema, out); err != nil {
		metrics.Get().AIRequestErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("error", errorKind(err))))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Malformed reply")
		return err
	}

	span.SetStatus(codes.Ok, "Query answered")
	return nil
}

func decodeReply(payload string, schema *Schema, out any) error {
	if !gjson.Valid(payload) {
		return fmt.Errorf("%w: reply is not JSON", models.ErrAIMalformedResponse)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: %v", models.ErrAIMalformedResponse, err)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("%w: %v", models.ErrAIMalformedResponse, err)
	}
	return nil
}

// Stream sends prompt with web search grounding and yields the reply chunk by
// chunk. Breaking out of the loop abandons the stream.
func (g *Gateway) Stream(ctx context.Context, prompt string) iter.Seq2[models.StreamChunk, error] {
	config := &genai.GenerateContentConfig{
		Tools:          []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		Temperature:    genai.Ptr(g.opts.Temperature),
		ThinkingConfig: noThinking(),
	}
	return func(yield func(models.StreamChunk, error) bool) {
		ctx, span := otel.Tracer("AIGateway").Start(ctx, "Stream", trace.WithAttributes(
			attribute.Int("prompt.length", len(prompt)),
		))
		defer span.End()

		chunks := metrics.Get().StreamChunksTotal
		for resp, err := range g.backend.GenerateStream(ctx, prompt, config) {
			if err != nil {
				if !errors.Is(err, models.ErrCredentialMissing) {
					err = fmt.Errorf("%w: %v", models.ErrAITransport, err)
				}
				span.RecordError(err)
				span.SetStatus(codes.Error, "Stream failed")
				yield(models.StreamChunk{}, err)
				return
			}
			chunks.Add(ctx, 1)
			if !yield(toChunk(resp), nil) {
				span.SetAttributes(attribute.Bool("abandoned", true))
				return
			}
		}
		span.SetStatus(codes.Ok, "Stream complete")
	}
}

// toChunk extracts the text delta and the linkable grounding sources of one
// streamed response.
func toChunk(resp *genai.GenerateContentResponse) models.StreamChunk {
	var chunk models.StreamChunk
	if resp == nil || len(resp.Candidates) == 0 {
		return chunk
	}
	cand := resp.Candidates[0]
	if cand.Content != nil {
		var sb strings.Builder
		for _, part := range cand.Content.Parts {
			if part != nil && part.Text != "" && !part.Thought {
				sb.WriteString(part.Text)
			}
		}
		chunk.TextDelta = sb.String()
	}
	if cand.GroundingMetadata != nil {
		for _, gc := range cand.GroundingMetadata.GroundingChunks {
			if gc == nil {
				continue
			}
			var src models.GroundingSource
			switch {
			case gc.Maps != nil && gc.Maps.URI != "":
				src = models.MapsSource(gc.Maps.URI, gc.Maps.Title)
			case gc.Web != nil:
				src = models.WebSource(gc.Web.URI, gc.Web.Title)
			default:
				continue
			}
			if src.Linkable() {
				chunk.Sources = append(chunk.Sources, src)
			}
		}
	}
	chunk.IsFinal = cand.FinishReason != ""
	return chunk
}

// cleanJSONResponse strips the markdown fences models like to wrap JSON in.
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrCredentialMissing):
		return "credential"
	case errors.Is(err, models.ErrAITimeout):
		return "timeout"
	case errors.Is(err, models.ErrAIMalformedResponse):
		return "malformed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "transport"
	}
}
