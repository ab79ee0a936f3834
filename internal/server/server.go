// Package server implements the HTTP transport layer for the pendla service.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pendla/pendla/internal/app"
	"github.com/pendla/pendla/internal/telemetry"
	"github.com/pendla/pendla/internal/transit"
	"github.com/pendla/pendla/internal/trip"
)

// ReadyChecker reports whether the system is ready to serve traffic.
type ReadyChecker func(ctx context.Context) error

// StopLookup searches the transit stop directory.
type StopLookup interface {
	LookupStops(ctx context.Context, query string, stationsOnly bool, maxResults int) ([]transit.StopHit, error)
}

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	Rooms      *app.RoomService
	Schedules  *app.ScheduleService
	Searcher   *trip.Searcher
	Stops      StopLookup
	ReadyCheck ReadyChecker       // nil = always ready (for tests)
	Metrics    *telemetry.Metrics // nil = no metrics middleware

	// MetricsHandler serves the /metrics endpoint (typically promhttp over
	// the same registry Metrics was registered with). nil = no endpoint.
	MetricsHandler http.Handler

	// Default window half-widths applied when the request omits them.
	DefaultHoursBefore float64
	DefaultHoursAfter  float64
}

// New creates an http.Handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()

	// Global middleware
	r.Use(s.recovery)
	r.Use(s.requestID)
	r.Use(s.logging)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// System endpoints
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms", s.handleRooms)
		r.Get("/rooms/{name}", s.handleRoom)
		r.Get("/buildings", s.handleBuildings)
		r.Get("/trips", s.handleTrips)
		r.Get("/stops", s.handleStops)
		r.Get("/schedule/events", s.handleScheduleEvents)
		r.Get("/schedule/validate", s.handleScheduleValidate)
	})

	return r
}

type server struct {
	deps Deps
}
