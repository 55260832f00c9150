package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal    metric.Int64Counter
	HTTPRequestDuration  metric.Float64Histogram
	SearchRequestsTotal  metric.Int64Counter
	AIRequestDuration    metric.Float64Histogram
	AIRequestErrorsTotal metric.Int64Counter
	CacheLookupsTotal    metric.Int64Counter
	CacheWriteFailures   metric.Int64Counter
	GuideStreamsTotal    metric.Int64Counter
	StreamChunksTotal    metric.Int64Counter
	ActiveSessions       metric.Int64UpDownCounter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider, so it must run
// after the tracer package installed the Prometheus-backed provider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("museum-radar")
		var err error
		m := &AppMetrics{}

		m.HTTPRequestsTotal, err = meter.Int64Counter(
			"http_requests_total",
			metric.WithDescription("Total number of HTTP requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_requests_total: %v", err)
		}

		m.HTTPRequestDuration, err = meter.Float64Histogram(
			"http_request_duration_seconds",
			metric.WithDescription("Duration of HTTP requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_request_duration_seconds: %v", err)
		}

		m.SearchRequestsTotal, err = meter.Int64Counter(
			"museum_search_requests_total",
			metric.WithDescription("Total number of museum discovery searches"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create museum_search_requests_total: %v", err)
		}

		m.AIRequestDuration, err = meter.Float64Histogram(
			"ai_request_duration_seconds",
			metric.WithDescription("Duration of one-shot AI requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create ai_request_duration_seconds: %v", err)
		}

		m.AIRequestErrorsTotal, err = meter.Int64Counter(
			"ai_request_errors_total",
			metric.WithDescription("Total number of failed AI requests"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create ai_request_errors_total: %v", err)
		}

		m.CacheLookupsTotal, err = meter.Int64Counter(
			"response_cache_lookups_total",
			metric.WithDescription("Response cache lookups by result"),
			metric.WithUnit("{lookup}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create response_cache_lookups_total: %v", err)
		}

		m.CacheWriteFailures, err = meter.Int64Counter(
			"response_cache_write_failures_total",
			metric.WithDescription("Swallowed response cache write failures"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create response_cache_write_failures_total: %v", err)
		}

		m.GuideStreamsTotal, err = meter.Int64Counter(
			"guide_streams_total",
			metric.WithDescription("Guide and free-text streams started"),
			metric.WithUnit("{stream}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create guide_streams_total: %v", err)
		}

		m.StreamChunksTotal, err = meter.Int64Counter(
			"stream_chunks_total",
			metric.WithDescription("Chunks consumed from streaming AI responses"),
			metric.WithUnit("{chunk}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create stream_chunks_total: %v", err)
		}

		m.ActiveSessions, err = meter.Int64UpDownCounter(
			"active_sessions",
			metric.WithDescription("Current number of browsing sessions"),
			metric.WithUnit("{session}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create active_sessions: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the global AppMetrics instance, initializing it against the
// current MeterProvider on first use (a no-op provider in tests).
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
