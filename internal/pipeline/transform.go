package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/response-map-service/internal/domain"
	"github.com/couchcryptid/response-map-service/internal/observability"
)

// Entry points, used as the source label on render metrics.
const (
	SourceKafka = "kafka"
	SourceHTTP  = "http"
	SourceCLI   = "cli"
)

// Route outcome labels.
const (
	RouteNone         = "none"
	RouteDrawn        = "drawn"
	RouteHidden       = "hidden"
	RouteInvalidStart = "invalid_start"
)

// MapTransformer renders snapshots into published maps, with optional
// place-name geocoding. It implements Transformer and is shared by every
// entry point so they all render identically.
type MapTransformer struct {
	renderer domain.Renderer
	geocoder domain.Geocoder
	metrics  *observability.Metrics
	logger   *slog.Logger
	clock    clockwork.Clock
}

// NewTransformer creates a MapTransformer. Pass a nil geocoder to disable
// place-name enrichment. Diagnostics already set on renderer are kept and
// also counted in metrics.
func NewTransformer(renderer domain.Renderer, geocoder domain.Geocoder, metrics *observability.Metrics, logger *slog.Logger) *MapTransformer {
	renderer.Diagnostics = domain.TeeDiagnostics(
		renderer.Diagnostics,
		observability.NewDiagnosticsRecorder(logger, metrics),
	)
	return &MapTransformer{
		renderer: renderer,
		geocoder: geocoder,
		metrics:  metrics,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
	}
}

// WithClock swaps the time source used for RenderedAt.
func (t *MapTransformer) WithClock(c clockwork.Clock) *MapTransformer {
	t.clock = c
	return t
}

// Transform decodes a snapshot message and renders it for the sink topic.
// Only an undecodable message is an error.
func (t *MapTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	snapshot, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	rendered := t.Render(ctx, snapshot, SourceKafka)
	rendered.SnapshotKey = string(raw.Key)
	return domain.SerializeRenderedMap(rendered)
}

// Render runs one snapshot through the renderer and geocoder. Diagnostics
// found along the way are returned with the map as well as logged and counted.
func (t *MapTransformer) Render(ctx context.Context, s domain.Snapshot, source string) domain.RenderedMap {
	start := time.Now()

	var collected domain.DiagnosticLog
	r := t.renderer
	r.Diagnostics = domain.TeeDiagnostics(&collected, r.Diagnostics)

	result := r.Render(s)
	result.Map = domain.EnrichWithGeocoding(ctx, result.Map, t.geocoder, r.Diagnostics, t.logger)

	outcome := routeOutcome(s, result)
	t.metrics.SnapshotsRendered.WithLabelValues(source).Inc()
	t.metrics.RouteOutcomes.WithLabelValues(outcome).Inc()
	t.metrics.RenderDuration.Observe(time.Since(start).Seconds())

	if outcome == RouteInvalidStart {
		t.logger.Warn("route start point rejected", "source", source, "error", result.RouteError)
	}

	diags := collected.Entries
	if diags == nil {
		diags = []domain.Diagnostic{}
	}
	return domain.RenderedMap{
		RenderedAt:  t.clock.Now().UTC(),
		Result:      result,
		Diagnostics: diags,
	}
}

func routeOutcome(s domain.Snapshot, res domain.RenderResult) string {
	switch {
	case s.Route == nil:
		return RouteNone
	case res.RouteError != "":
		return RouteInvalidStart
	case len(res.Map.Polyline) > 0:
		return RouteDrawn
	default:
		return RouteHidden
	}
}
