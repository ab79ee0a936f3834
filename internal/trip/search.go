package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	pendla "github.com/pendla/pendla/internal"
	"github.com/pendla/pendla/internal/telemetry"
	"github.com/pendla/pendla/internal/transit"
)

// Planner is the slice of the transit client the searcher needs.
type Planner interface {
	PlanTrip(ctx context.Context, req transit.PlanRequest) ([]transit.RawTrip, error)
}

// Defaults for the search loop.
const (
	DefaultBatchSize     = 6  // alternatives requested per planner query
	DefaultMaxIterations = 15 // safety valve against runaway querying
)

// Searcher covers a target arrival window by walking the planner forward in
// bounded batches, normalizing and merging each batch.
type Searcher struct {
	planner       Planner
	norm          *Normalizer
	batchSize     int
	maxIterations int
	metrics       *telemetry.Metrics
	tracer        trace.Tracer
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithBatchSize sets how many alternatives each planner query asks for.
func WithBatchSize(n int) SearcherOption {
	return func(s *Searcher) { s.batchSize = n }
}

// WithMaxIterations sets the iteration budget for one search.
func WithMaxIterations(n int) SearcherOption {
	return func(s *Searcher) { s.maxIterations = n }
}

// WithMetrics enables search histograms.
func WithMetrics(m *telemetry.Metrics) SearcherOption {
	return func(s *Searcher) { s.metrics = m }
}

// WithTracer enables a span per search.
func WithTracer(t trace.Tracer) SearcherOption {
	return func(s *Searcher) { s.tracer = t }
}

// NewSearcher creates a Searcher over the given planner and normalizer.
func NewSearcher(planner Planner, norm *Normalizer, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		planner:       planner,
		norm:          norm,
		batchSize:     DefaultBatchSize,
		maxIterations: DefaultMaxIterations,
		tracer:        noop.NewTracerProvider().Tracer("trip"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchRequest describes one trip search.
type SearchRequest struct {
	Origin        transit.Point
	Destination   transit.Point
	TargetArrival time.Time
	HoursBefore   float64 // window opens this many hours before TargetArrival
	HoursAfter    float64 // window closes this many hours after TargetArrival
	Modes         []pendla.TravelMode // nil = all
	WalkOverride  *time.Duration      // replaces the final walk's duration
	MinChangeMin  *int
	MaxChangeMin  *int
}

// window is the search state. earliest <= cursor <= latest holds until the
// loop terminates.
type window struct {
	earliest time.Time
	latest   time.Time
	cursor   time.Time
}

// Search walks the planner forward from the start of the window until the
// window is covered or the iteration budget runs out, then deduplicates the
// merged result.
//
// Error contract: pendla.ErrUnparseable when any returned trip cannot be
// normalized (no partial results); pendla.ErrNoTrips when the planner finds
// nothing before the search has reached the target arrival time;
// pendla.ErrSearchExhausted when the budget runs out before the target.
// Running out of trips or budget at or past the target is a success with
// whatever has been collected.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) ([]pendla.Itinerary, error) {
	ctx, span := s.tracer.Start(ctx, "trip.Search",
		trace.WithAttributes(
			attribute.String("target_arrival", req.TargetArrival.Format(time.RFC3339)),
		))
	defer span.End()

	w := window{
		earliest: req.TargetArrival.Add(-hours(req.HoursBefore)),
		latest:   req.TargetArrival.Add(hours(req.HoursAfter)),
	}
	w.cursor = w.earliest

	var collected []pendla.Itinerary
	iterations := 0
	defer func() {
		if s.metrics != nil {
			s.metrics.SearchIterations.Observe(float64(iterations))
		}
	}()

	for w.cursor.Before(w.latest) {
		if iterations >= s.maxIterations {
			if w.cursor.Before(req.TargetArrival) {
				return nil, fmt.Errorf("window not covered after %d planner queries: %w",
					iterations, pendla.ErrSearchExhausted)
			}
			// Past the target: the partial result is still useful.
			slog.LogAttrs(ctx, slog.LevelWarn, "trip search budget exhausted past target, returning partial result",
				slog.Int("iterations", iterations),
				slog.Int("itineraries", len(collected)),
			)
			break
		}
		iterations++

		raw, err := s.planner.PlanTrip(ctx, transit.PlanRequest{
			Points:          []transit.Point{req.Origin, req.Destination},
			Date:            w.cursor.Format("2006-01-02"),
			Time:            w.cursor.Format("15:04"),
			CountBefore:     s.batchSize,
			CountAfter:      0,
			SearchByArrival: true,
			Modes:           req.Modes,
			IncludeStops:    true,
			MinChangeMin:    req.MinChangeMin,
			MaxChangeMin:    req.MaxChangeMin,
		})
		if errors.Is(err, pendla.ErrNoTrips) {
			if w.cursor.Before(req.TargetArrival) {
				// Without data there is no way to know how far forward
				// to jump; give up rather than guess.
				return nil, fmt.Errorf("planner found nothing before the target arrival: %w", err)
			}
			break
		}
		if err != nil {
			return nil, err
		}

		batch, err := s.norm.Normalize(raw, req.WalkOverride)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			if w.cursor.Before(req.TargetArrival) {
				return nil, fmt.Errorf("planner returned an empty batch before the target arrival: %w", pendla.ErrNoTrips)
			}
			break
		}

		collected = append(collected, batch...)

		// The search is forward-driving: each batch arrives no earlier
		// than its anchor, so the last arrival seeds the next query.
		w.cursor = batch[len(batch)-1].ArriveAt.AtStop
		slog.LogAttrs(ctx, slog.LevelDebug, "trip search advanced",
			slog.Int("iteration", iterations),
			slog.Time("cursor", w.cursor),
			slog.Int("collected", len(collected)),
		)
	}

	result := dedupe(collected)
	if s.metrics != nil {
		s.metrics.SearchTrips.Observe(float64(len(result)))
	}
	span.SetAttributes(
		attribute.Int("iterations", iterations),
		attribute.Int("itineraries", len(result)),
	)
	return result, nil
}

// dedupe removes structurally identical itineraries. Overlapping search
// windows routinely return the same suggestion twice; two itineraries are
// the same when their ordered leg sequences match.
func dedupe(its []pendla.Itinerary) []pendla.Itinerary {
	out := make([]pendla.Itinerary, 0, len(its))
	seen := make(map[string]struct{}, len(its))
	for _, it := range its {
		fp := fingerprint(it)
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, it)
	}
	return out
}

// fingerprint builds a structural identity for an itinerary from its leg
// sequence.
func fingerprint(it pendla.Itinerary) string {
	var b strings.Builder
	for _, leg := range it.Legs {
		b.WriteString(string(leg.Kind))
		b.WriteByte('|')
		b.WriteString(string(leg.Mode))
		b.WriteByte('|')
		b.WriteString(leg.Line)
		b.WriteByte('|')
		b.WriteString(leg.Origin.Name)
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(leg.Origin.Time.Unix(), 10))
		b.WriteByte('|')
		b.WriteString(leg.Destination.Name)
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(leg.Destination.Time.Unix(), 10))
		b.WriteByte(';')
	}
	return b.String()
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
