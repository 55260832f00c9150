package gateway

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-museumradar/internal/app/models"
)

// Backend is the generative-AI capability the gateway drives.
type Backend interface {
	Generate(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error)
	GenerateStream(ctx context.Context, prompt string, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// KeySource yields the API key currently selected for a session. An empty key
// means no credential is active.
type KeySource interface {
	ActiveKey() string
}

// GeminiBackend talks to the Gemini API. Clients are created lazily, one per
// distinct key, so a session that switches keys never reuses a stale client.
type GeminiBackend struct {
	model  string
	keys   KeySource
	logger *zap.Logger

	mu      sync.Mutex
	clients map[string]*genai.Client
}

func NewGeminiBackend(model string, keys KeySource, logger *zap.Logger) *GeminiBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiBackend{
		model:   model,
		keys:    keys,
		logger:  logger,
		clients: make(map[string]*genai.Client),
	}
}

func (b *GeminiBackend) client(ctx context.Context) (*genai.Client, error) {
	key := b.keys.ActiveKey()
	if key == "" {
		return nil, models.ErrCredentialMissing
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.clients[key]; ok {
		return c, nil
	}

	ctx, span := otel.Tracer("GeminiBackend").Start(ctx, "NewClient")
	defer span.End()

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create Gemini client")
		return nil, fmt.Errorf("%w: create client: %v", models.ErrAITransport, err)
	}
	b.logger.Debug("Created Gemini client", zap.String("model", b.model))
	b.clients[key] = c
	return c, nil
}

func (b *GeminiBackend) Generate(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	ctx, span := otel.Tracer("GeminiBackend").Start(ctx, "Generate", trace.WithAttributes(
		attribute.Int("prompt.length", len(prompt)),
		attribute.String("model", b.model),
	))
	defer span.End()

	c, err := b.client(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "No client")
		return "", err
	}

	result, err := c.Models.GenerateContent(ctx, b.model, genai.Text(prompt), config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate content")
		return "", err
	}

	text := result.Text()
	span.SetAttributes(attribute.Int("response.length", len(text)))
	span.SetStatus(codes.Ok, "Content generated")
	return text, nil
}

func (b *GeminiBackend) GenerateStream(ctx context.Context, prompt string, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	c, err := b.client(ctx)
	if err != nil {
		return func(yield func(*genai.GenerateContentResponse, error) bool) {
			yield(nil, err)
		}
	}
	return c.Models.GenerateContentStream(ctx, b.model, genai.Text(prompt), config)
}
