package search

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-museumradar/internal/app/domain/guide"
	"github.com/FACorreiaa/go-museumradar/internal/app/models"
	"github.com/FACorreiaa/go-museumradar/internal/app/render"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/geo"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/observability/metrics"
)

// GuideKey identifies the inputs of a guide stream: the active area, the
// origin rounded to 3 decimals and the radius.
func GuideKey(area string, origin *models.Coordinates, radiusKm int) string {
	lat, lng := "none", "none"
	if origin != nil {
		lat = geo.FormatFixed(origin.Lat, 3)
		lng = geo.FormatFixed(origin.Lng, 3)
	}
	return fmt.Sprintf("%s|%s|%s|%d", area, lat, lng, radiusKm)
}

// Guide returns the current guide panel state.
func (o *Orchestrator) Guide() GuideUpdate {
	o.mu.Lock()
	defer o.mu.Unlock()
	u := o.guide
	u.Snapshot.Sources = append([]models.GroundingSource(nil), u.Snapshot.Sources...)
	return u
}

// SetRadius changes the guide radius, clamped to 1 to 50 km, and returns the
// value in effect.
func (o *Orchestrator) SetRadius(km int) int {
	km = ClampRadius(km)
	o.emitGuide(func() (GuideUpdate, bool) {
		o.sctx.RadiusKm = km
		return o.refreshGuideLocked()
	})
	return km
}

// emitGuide runs change under the orchestrator lock and publishes the update
// it reports. Publishing is serialized with the change, so subscribers see
// guide updates in the order the guide state moved.
func (o *Orchestrator) emitGuide(change func() (GuideUpdate, bool)) bool {
	o.publishMu.Lock()
	defer o.publishMu.Unlock()

	o.mu.Lock()
	update, ok := change()
	o.mu.Unlock()

	if ok {
		o.onGuide(update)
	}
	return ok
}

// refreshGuideLocked clears the guide and schedules a debounced start when the
// guide key moved away from the last processed or pending one. Only the start
// scheduled last may fire.
func (o *Orchestrator) refreshGuideLocked() (GuideUpdate, bool) {
	if o.closed || o.sctx.ActiveArea == "" {
		return GuideUpdate{}, false
	}
	key := GuideKey(o.sctx.ActiveArea, o.sctx.Origin, o.sctx.RadiusKm)
	effective := o.sctx.LastProcessedKey
	if o.pendingGuide != "" {
		effective = o.pendingGuide
	}
	if key == effective {
		return GuideUpdate{}, false
	}

	o.guideGen++
	gen := o.guideGen
	o.pendingGuide = key
	o.guide = GuideUpdate{Key: key, Area: o.sctx.ActiveArea, RadiusKm: o.sctx.RadiusKm}
	o.schedule(o.opts.Debounce, func() { o.startGuide(gen) })
	return o.guide, true
}

func (o *Orchestrator) startGuide(gen uint64) {
	var (
		key, area string
		radius    int
		hasKey    bool
	)
	started := o.emitGuide(func() (GuideUpdate, bool) {
		if o.closed || gen != o.guideGen || o.pendingGuide == "" {
			return GuideUpdate{}, false
		}
		key = o.pendingGuide
		o.pendingGuide = ""
		o.sctx.LastProcessedKey = key
		area, radius = o.sctx.ActiveArea, o.sctx.RadiusKm
		hasKey = o.creds != nil && o.creds.HasActiveCredential()
		o.guide = GuideUpdate{Key: key, Area: area, RadiusKm: radius, Loading: hasKey}
		if !hasKey {
			o.guide.Notice = models.MessageKeyRequired
		}
		return o.guide, true
	})
	if !started || !hasKey {
		return
	}

	ctx, span := otel.Tracer("SearchOrchestrator").Start(context.Background(), "GuideStream", trace.WithAttributes(
		attribute.String("guide.area", area),
		attribute.Int("guide.radius_km", radius),
	))
	defer span.End()
	l := o.logger.With(zap.String("method", "GuideStream"), zap.String("key", key))
	l.Debug("Starting guide stream")
	metrics.Get().GuideStreamsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Int("radius_km", radius)))

	var streamErr error
	for ev := range guide.Aggregate(o.ai.ActivitiesGuideStream(ctx, o.opts.GuideTopic, area, radius)) {
		current := o.emitGuide(func() (GuideUpdate, bool) {
			return o.applyGuideEventLocked(gen, ev)
		})
		if !current {
			l.Debug("Abandoning superseded guide stream")
			span.SetAttributes(attribute.Bool("abandoned", true))
			return
		}
		streamErr = ev.Err
	}

	if streamErr != nil {
		l.Warn("Guide stream failed", zap.Error(streamErr))
		span.RecordError(streamErr)
		span.SetStatus(codes.Error, "Guide stream failed")
		return
	}

	o.emitGuide(func() (GuideUpdate, bool) {
		if gen != o.guideGen || o.closed {
			return GuideUpdate{}, false
		}
		o.guide.Loading = false
		return o.guide, true
	})
	span.SetStatus(codes.Ok, "Guide stream complete")
}

// applyGuideEventLocked stores ev as the current guide content while gen is
// still the current guide generation.
func (o *Orchestrator) applyGuideEventLocked(gen uint64, ev guide.Event) (GuideUpdate, bool) {
	if o.closed || gen != o.guideGen {
		return GuideUpdate{}, false
	}
	o.guide.Snapshot = ev.Snapshot
	o.guide.HTML = render.FormattedText(ev.Snapshot.FullText)
	if ev.Err != nil {
		o.guide.Loading = false
		o.guide.Notice = models.MessageGuideUnavailable
		if errors.Is(ev.Err, models.ErrCredentialMissing) {
			o.guide.Notice = models.MessageKeyRequired
		}
	}
	return o.guide, true
}
