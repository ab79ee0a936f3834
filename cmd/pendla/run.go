package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/dnscache"

	"github.com/pendla/pendla/internal/app"
	"github.com/pendla/pendla/internal/backend"
	"github.com/pendla/pendla/internal/backend/sqlite"
	"github.com/pendla/pendla/internal/cache"
	"github.com/pendla/pendla/internal/circuitbreaker"
	"github.com/pendla/pendla/internal/config"
	"github.com/pendla/pendla/internal/places"
	"github.com/pendla/pendla/internal/schedule"
	"github.com/pendla/pendla/internal/server"
	"github.com/pendla/pendla/internal/telemetry"
	"github.com/pendla/pendla/internal/transit"
	"github.com/pendla/pendla/internal/trip"
	"github.com/pendla/pendla/internal/upstream"
	"github.com/pendla/pendla/internal/worker"
)

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	slog.Info("starting pendla", "version", version, "addr", cfg.Server.Addr, "backend", cfg.Backend.Type)

	ctx := context.Background()

	// Telemetry
	var (
		metrics        *telemetry.Metrics
		metricsHandler http.Handler
	)
	if cfg.Telemetry.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = telemetry.NewMetrics(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	if cfg.Telemetry.Tracing.Enabled {
		shutdown, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Tracing.Endpoint, cfg.Telemetry.Tracing.SampleRate)
		if err != nil {
			return fmt.Errorf("setup tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	// Shared DNS cache for all upstream transports.
	resolver := &dnscache.Resolver{}

	// Storage backend
	store, readyCheck, err := openBackend(cfg, resolver)
	if err != nil {
		return err
	}
	defer store.Close()

	cacheOpts := []cache.Option{cache.WithTracer(telemetry.Tracer("cache"))}
	if metrics != nil {
		cacheOpts = append(cacheOpts, cache.WithMetrics(metrics))
	}
	freshCache, err := cache.New(store, cacheOpts...)
	if err != nil {
		return err
	}

	// Upstream clients, each behind its own circuit breaker.
	breakers := circuitbreaker.NewRegistry(circuitbreaker.DefaultConfig())
	placesClient := places.New(
		cfg.Places.BaseURL,
		cfg.Places.APIKey,
		cfg.Places.UserAgent,
		upstream.NewGuardedClient(cfg.Places.Timeout, resolver, "places", breakers.GetOrCreate("places"), metrics),
	)
	transitClient := transit.New(
		cfg.Transit.BaseURL,
		cfg.Transit.PlannerKey,
		cfg.Transit.LookupKey,
		cfg.Transit.UserAgent,
		upstream.NewGuardedClient(cfg.Transit.Timeout, resolver, "transit", breakers.GetOrCreate("transit"), metrics),
	)
	feedFetcher := schedule.NewFetcher(
		cfg.Places.UserAgent,
		upstream.NewGuardedClient(cfg.Places.Timeout, resolver, "schedule", breakers.GetOrCreate("schedule"), metrics),
	)

	// Services
	roomSvc := app.NewRoomService(freshCache, placesClient, cfg.Freshness.Rooms)
	scheduleSvc := app.NewScheduleService(freshCache, feedFetcher, schedule.ICalParser{}, cfg.Freshness.Schedules)

	plannerLoc, err := time.LoadLocation(cfg.Transit.Timezone)
	if err != nil {
		return fmt.Errorf("load planner timezone: %w", err)
	}
	searchOpts := []trip.SearcherOption{
		trip.WithBatchSize(cfg.Search.BatchSize),
		trip.WithMaxIterations(cfg.Search.MaxIterations),
		trip.WithTracer(telemetry.Tracer("trip")),
	}
	if metrics != nil {
		searchOpts = append(searchOpts, trip.WithMetrics(metrics))
	}
	searcher := trip.NewSearcher(transitClient, trip.NewNormalizer(plannerLoc), searchOpts...)

	handler := server.New(server.Deps{
		Rooms:              roomSvc,
		Schedules:          scheduleSvc,
		Searcher:           searcher,
		Stops:              transitClient,
		ReadyCheck:         readyCheck,
		Metrics:            metrics,
		MetricsHandler:     metricsHandler,
		DefaultHoursBefore: cfg.Search.HoursBefore,
		DefaultHoursAfter:  cfg.Search.HoursAfter,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	runner := worker.NewRunner(
		worker.NewPrewarm(roomSvc, cfg.Prewarm.Rooms, cfg.Prewarm.Interval),
		worker.NewDNSRefresh(resolver),
	)
	workerErrCh := make(chan error, 1)
	go func() {
		workerErrCh <- runner.Run(workerCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("pendla ready", "addr", cfg.Server.Addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	stopWorkers()
	if err := <-workerErrCh; err != nil {
		slog.Warn("worker stopped with error", "error", err)
	}

	slog.Info("pendla stopped")
	return nil
}

// openBackend constructs the configured storage backend and its readiness
// probe. Memory and docstore backends have no meaningful ping; they always
// report ready.
func openBackend(cfg *config.Config, resolver *dnscache.Resolver) (backend.Store, server.ReadyChecker, error) {
	switch cfg.Backend.Type {
	case "memory":
		ttl := max(cfg.Freshness.Rooms, cfg.Freshness.Schedules)
		store, err := backend.NewMemory(cfg.Backend.MaxEntries, ttl)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case "sqlite":
		store, err := sqlite.New(cfg.Backend.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Ping, nil
	case "docstore":
		client := upstream.NewClient(cfg.Backend.Docstore.Timeout, resolver)
		return backend.NewDocStore(cfg.Backend.Docstore.BaseURL, cfg.Backend.Docstore.APIKey, client), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend type %q", cfg.Backend.Type)
	}
}
