package search

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-museumradar/internal/app/domain/guide"
	"github.com/FACorreiaa/go-museumradar/internal/app/domain/normalizer"
	"github.com/FACorreiaa/go-museumradar/internal/app/models"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/geo"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/observability/metrics"
)

// Discovery is the AI capability the orchestrator drives. *gateway.Gateway
// implements it.
type Discovery interface {
	CityForCoordinates(ctx context.Context, lat, lng float64) (string, bool)
	MuseumsNearCoordinates(ctx context.Context, lat, lng float64) ([]models.RawMuseum, error)
	MuseumsInPlace(ctx context.Context, place string) ([]models.RawMuseum, error)
	ActivitiesGuideStream(ctx context.Context, topic, locationLabel string, radiusKm int) iter.Seq2[models.StreamChunk, error]
	FreeTextQueryStream(ctx context.Context, question string) iter.Seq2[models.StreamChunk, error]
}

// Scheduler runs f once after d, never synchronously. The orchestrator never
// cancels a scheduled call; a call that fires for a superseded key does
// nothing.
type Scheduler func(d time.Duration, f func())

func afterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

const (
	MinRadiusKm = 1
	MaxRadiusKm = 50

	WelcomeLabel = "Welcome to MuseumRadar"
)

type Options struct {
	GeoTimeout      time.Duration
	Debounce        time.Duration
	DefaultRadiusKm int
	GuideTopic      string
	FallbackArea    string
}

func DefaultOptions() Options {
	return Options{
		GeoTimeout:      5 * time.Second,
		Debounce:        500 * time.Millisecond,
		DefaultRadiusKm: 10,
		GuideTopic:      "culture",
		FallbackArea:    "your area",
	}
}

// Deps are the collaborators of one orchestrator.
type Deps struct {
	AI          Discovery
	Credentials CredentialProvider
	Normalizer  *normalizer.Normalizer
	Logger      *zap.Logger
	// Schedule defaults to time.AfterFunc.
	Schedule Scheduler
	// OnGuideUpdate receives every guide panel change, one call at a time and
	// in the order the changes happened. It is called without the orchestrator
	// lock held; it must not block for long and must not call back into the
	// orchestrator.
	OnGuideUpdate func(GuideUpdate)
}

// Orchestrator owns the search state of one browsing session: the current
// results, the search context and the guide stream that depends on it.
type Orchestrator struct {
	ai       Discovery
	creds    CredentialProvider
	norm     *normalizer.Normalizer
	logger   *zap.Logger
	schedule Scheduler
	onGuide  func(GuideUpdate)
	opts     Options

	// publishMu orders guide publication; it is taken before mu.
	publishMu sync.Mutex

	mu             sync.Mutex
	state          State
	museums        []models.Museum
	message        string
	loadingMessage string
	needsKey       bool
	sctx           models.SearchContext
	searchSeq      uint64
	pendingGuide   string
	guideGen       uint64
	guide          GuideUpdate
	closed         bool
}

func NewOrchestrator(deps Deps, opts Options) *Orchestrator {
	d := DefaultOptions()
	if opts.GeoTimeout <= 0 {
		opts.GeoTimeout = d.GeoTimeout
	}
	if opts.Debounce < 0 {
		opts.Debounce = d.Debounce
	}
	if opts.DefaultRadiusKm == 0 {
		opts.DefaultRadiusKm = d.DefaultRadiusKm
	}
	opts.DefaultRadiusKm = ClampRadius(opts.DefaultRadiusKm)
	if opts.GuideTopic == "" {
		opts.GuideTopic = d.GuideTopic
	}
	if opts.FallbackArea == "" {
		opts.FallbackArea = d.FallbackArea
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Schedule == nil {
		deps.Schedule = afterFunc
	}
	if deps.Normalizer == nil {
		deps.Normalizer = normalizer.New(normalizer.DefaultOptions())
	}
	if deps.OnGuideUpdate == nil {
		deps.OnGuideUpdate = func(GuideUpdate) {}
	}
	return &Orchestrator{
		ai:       deps.AI,
		creds:    deps.Credentials,
		norm:     deps.Normalizer,
		logger:   deps.Logger,
		schedule: deps.Schedule,
		onGuide:  deps.OnGuideUpdate,
		opts:     opts,
		sctx:     initialContext(opts.DefaultRadiusKm),
	}
}

func initialContext(radius int) models.SearchContext {
	return models.SearchContext{Label: WelcomeLabel, RadiusKm: radius}
}

// ClampRadius bounds a guide radius to the supported 1 to 50 km.
func ClampRadius(km int) int {
	return min(max(km, MinRadiusKm), MaxRadiusKm)
}

// View returns a copy of the current discovery state.
func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.viewLocked()
}

func (o *Orchestrator) viewLocked() View {
	v := View{
		State:          o.state,
		Museums:        slices.Clone(o.museums),
		Message:        o.message,
		LoadingMessage: o.loadingMessage,
		Context:        o.sctx,
		NeedsKey:       o.needsKey,
	}
	if o.sctx.Origin != nil {
		origin := *o.sctx.Origin
		v.Context.Origin = &origin
	}
	if v.Museums == nil {
		v.Museums = []models.Museum{}
	}
	return v
}

// Museum looks a museum of the current result set up by ID.
func (o *Orchestrator) Museum(id string) (models.Museum, *models.Coordinates, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, m := range o.museums {
		if m.ID == id {
			var origin *models.Coordinates
			if o.sctx.Origin != nil {
				c := *o.sctx.Origin
				origin = &c
			}
			return m, origin, true
		}
	}
	return models.Museum{}, nil, false
}

// BeginSearch runs one discovery search and publishes its outcome. Without an
// active credential the search is refused with ErrCredentialMissing. A search
// overtaken by a newer one or by Reset is discarded; the returned view then
// reflects the newer state.
func (o *Orchestrator) BeginSearch(ctx context.Context, intent Intent) (View, error) {
	ctx, span := otel.Tracer("SearchOrchestrator").Start(ctx, "BeginSearch", trace.WithAttributes(
		attribute.String("search.kind", intent.kind()),
	))
	defer span.End()
	l := o.logger.With(zap.String("method", "BeginSearch"), zap.String("kind", intent.kind()))

	if !intent.byLocation() && strings.TrimSpace(intent.place) == "" {
		return o.View(), fmt.Errorf("%w: empty place name", models.ErrBadRequest)
	}

	if o.creds == nil || !o.creds.HasActiveCredential() {
		o.mu.Lock()
		o.needsKey = true
		v := o.viewLocked()
		o.mu.Unlock()
		span.SetStatus(codes.Error, "Credential missing")
		o.countSearch(ctx, intent, "credential_missing")
		return v, models.ErrCredentialMissing
	}

	o.mu.Lock()
	o.searchSeq++
	seq := o.searchSeq
	o.state = StateSearching
	o.museums = nil
	o.message = ""
	o.needsKey = false
	if intent.byLocation() {
		o.loadingMessage = "AI is scanning your surroundings..."
	} else {
		o.loadingMessage = fmt.Sprintf("AI is searching in %s...", strings.TrimSpace(intent.place))
	}
	o.mu.Unlock()

	var res resolution
	var err error
	if intent.byLocation() {
		res, err = o.resolveLocation(ctx, intent.locator)
	} else {
		res, err = o.resolvePlace(ctx, intent.place)
	}

	var museums []models.Museum
	var normErr error
	if err == nil {
		museums, normErr = o.norm.Normalize(res.raw, res.origin)
	}

	o.publishMu.Lock()
	o.mu.Lock()
	if seq != o.searchSeq || o.closed {
		v := o.viewLocked()
		o.mu.Unlock()
		o.publishMu.Unlock()
		l.Debug("Discarding stale search result", zap.Uint64("seq", seq))
		span.SetAttributes(attribute.Bool("stale", true))
		o.countSearch(ctx, intent, "stale")
		return v, nil
	}
	o.loadingMessage = ""

	if err != nil {
		o.state = StateIdle
		o.museums = nil
		o.message = models.MessageFetchFailed
		v := o.viewLocked()
		o.mu.Unlock()
		o.publishMu.Unlock()

		l.Error("Search failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Search failed")
		o.countSearch(ctx, intent, "failed")
		return v, err
	}

	o.state = StateReady
	o.museums = museums
	o.message = models.UserMessage(normErr)
	o.sctx.Origin = res.origin
	o.sctx.ActiveArea = res.area
	o.sctx.Label = res.label
	update, changed := o.refreshGuideLocked()
	v := o.viewLocked()
	o.mu.Unlock()

	if changed {
		o.onGuide(update)
	}
	o.publishMu.Unlock()

	if normErr != nil {
		l.Info("Search returned no usable museums", zap.Error(normErr))
		o.countSearch(ctx, intent, "empty")
		return v, normErr
	}

	l.Info("Search finished", zap.Int("museums", len(museums)), zap.String("area", res.area))
	span.SetAttributes(attribute.Int("museums.count", len(museums)))
	span.SetStatus(codes.Ok, "Search finished")
	o.countSearch(ctx, intent, "ok")
	return v, nil
}

type resolution struct {
	raw    []models.RawMuseum
	origin *models.Coordinates
	area   string
	label  string
}

func (o *Orchestrator) resolveLocation(ctx context.Context, locator Geolocator) (resolution, error) {
	pos, err := o.locate(ctx, locator)
	if err != nil {
		return resolution{}, err
	}

	var (
		city    string
		hasCity bool
		raw     []models.RawMuseum
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		city, hasCity = o.ai.CityForCoordinates(gctx, pos.Lat, pos.Lng)
		return nil
	})
	g.Go(func() error {
		var err error
		raw, err = o.ai.MuseumsNearCoordinates(gctx, pos.Lat, pos.Lng)
		return err
	})
	if err := g.Wait(); err != nil {
		return resolution{}, err
	}

	area := o.opts.FallbackArea
	if hasCity {
		area = city
	}
	return resolution{
		raw:    raw,
		origin: &pos,
		area:   area,
		label:  "Results for " + area,
	}, nil
}

func (o *Orchestrator) locate(ctx context.Context, locator Geolocator) (models.Coordinates, error) {
	geoCtx, cancel := context.WithTimeout(ctx, o.opts.GeoTimeout)
	defer cancel()

	pos, err := locator.CurrentPosition(geoCtx)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrGeoDenied), errors.Is(err, models.ErrGeoTimeout), errors.Is(err, models.ErrGeoUnavailable):
		return models.Coordinates{}, err
	case errors.Is(geoCtx.Err(), context.DeadlineExceeded):
		return models.Coordinates{}, fmt.Errorf("%w: no fix within %s", models.ErrGeoTimeout, o.opts.GeoTimeout)
	default:
		return models.Coordinates{}, fmt.Errorf("%w: %v", models.ErrGeoUnavailable, err)
	}
	if !geo.ValidateCoordinates(pos.Lat, pos.Lng) {
		return models.Coordinates{}, fmt.Errorf("%w: invalid fix %s", models.ErrGeoUnavailable, pos)
	}
	return pos, nil
}

func (o *Orchestrator) resolvePlace(ctx context.Context, place string) (resolution, error) {
	place = strings.TrimSpace(place)
	raw, err := o.ai.MuseumsInPlace(ctx, place)
	if err != nil {
		return resolution{}, err
	}
	res := resolution{raw: raw, area: place, label: "Results in " + place}
	if len(raw) > 0 {
		if c, ok := raw[0].Coordinates(); ok && geo.HasValidCoordinates(c.Lat, c.Lng) {
			res.origin = &c
		}
	}
	return res, nil
}

// Reset returns to Idle from any state. In-flight searches and guide streams
// are discarded when they complete.
func (o *Orchestrator) Reset() View {
	o.publishMu.Lock()
	defer o.publishMu.Unlock()

	o.mu.Lock()
	o.searchSeq++
	o.guideGen++
	o.state = StateIdle
	o.museums = nil
	o.message = ""
	o.loadingMessage = ""
	o.needsKey = false
	o.sctx = initialContext(o.sctx.RadiusKm)
	o.pendingGuide = ""
	o.guide = GuideUpdate{RadiusKm: o.sctx.RadiusKm}
	update := o.guide
	v := o.viewLocked()
	o.mu.Unlock()

	o.logger.Debug("Search state reset")
	o.onGuide(update)
	return v
}

// Close detaches the orchestrator from its session. Pending guide starts and
// running streams stop at their next step.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.searchSeq++
	o.guideGen++
	o.pendingGuide = ""
	o.sctx.LastProcessedKey = ""
}

// Ask streams a grounded answer to a free-text question as aggregated
// snapshots.
func (o *Orchestrator) Ask(ctx context.Context, question string) (iter.Seq[guide.Event], error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", models.ErrBadRequest)
	}
	if o.creds == nil || !o.creds.HasActiveCredential() {
		o.mu.Lock()
		o.needsKey = true
		o.mu.Unlock()
		return nil, models.ErrCredentialMissing
	}
	o.logger.Debug("Answering question", zap.Int("length", len(question)))
	return guide.Aggregate(o.ai.FreeTextQueryStream(ctx, question)), nil
}

func (o *Orchestrator) countSearch(ctx context.Context, intent Intent, outcome string) {
	metrics.Get().SearchRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", intent.kind()),
		attribute.String("outcome", outcome),
	))
}
