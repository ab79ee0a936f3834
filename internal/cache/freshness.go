// Package cache implements the freshness-aware read/update layer that
// mediates every upstream lookup.
//
// The cache is best-effort, not strongly consistent: concurrent refreshes of
// the same id may both miss and both fetch, resolving last-write-wins. That
// is accepted -- refreshed values are idempotent snapshots of upstream truth.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	pendla "github.com/pendla/pendla/internal"
	"github.com/pendla/pendla/internal/backend"
	"github.com/pendla/pendla/internal/telemetry"
)

// Clock returns the current time. Injected so tests can pin it.
type Clock func() time.Time

// Result is the per-id outcome of a cached read. A nil Value means the id
// needs a sync; Ref is kept even then so a stale entry can be refreshed in
// place by the backend.
type Result struct {
	Value []byte
	Ref   pendla.Ref
}

// Cache layers freshness decisions on a storage backend. The backend is
// injected at construction; its write capability is detected once, here,
// by interface assertion.
type Cache struct {
	store     backend.Store
	refWriter backend.RefWriter // nil when unsupported
	ttlWriter backend.TTLWriter // nil when unsupported
	now       Clock
	metrics   *telemetry.Metrics // nil disables counters
	tracer    trace.Tracer
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now Clock) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics enables hit/miss/refresh-error counters.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithTracer enables spans on batched reads.
func WithTracer(t trace.Tracer) Option {
	return func(c *Cache) { c.tracer = t }
}

// New creates a Cache over the given backend. The backend must expose at
// least one write capability.
func New(store backend.Store, opts ...Option) (*Cache, error) {
	c := &Cache{
		store:  store,
		now:    time.Now,
		tracer: noop.NewTracerProvider().Tracer("cache"),
	}
	c.refWriter, _ = store.(backend.RefWriter)
	c.ttlWriter, _ = store.(backend.TTLWriter)
	if c.refWriter == nil && c.ttlWriter == nil {
		return nil, errors.New("cache: backend exposes no write capability")
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetCached resolves each id to its cached value, or to a nil value when the
// id needs a sync. The returned slice is ordered like ids. For backends with
// native expiry the interval is ignored: an absent read already means stale.
// Backend failures degrade to a full miss and are never fatal.
//
// The staleness decision is made exactly once per id per call; SyncedAt is
// not re-read mid-refresh.
func (c *Cache) GetCached(ctx context.Context, keyType string, ids []string, interval time.Duration) []Result {
	ctx, span := c.tracer.Start(ctx, "cache.GetCached",
		trace.WithAttributes(
			attribute.String("key_type", keyType),
			attribute.Int("ids", len(ids)),
		))
	defer span.End()

	results := make([]Result, len(ids))

	entries, err := c.store.GetMany(ctx, keyType, ids)
	if err != nil {
		slog.LogAttrs(ctx, slog.LevelWarn, "cache backend read failed, treating as miss",
			slog.String("key_type", keyType),
			slog.String("error", err.Error()),
		)
		c.countMisses(keyType, len(ids))
		return results
	}

	now := c.now()
	for i, id := range ids {
		e, ok := entries[id]
		if !ok || e == nil {
			// Needs sync, not in database.
			c.countMiss(keyType)
			continue
		}
		if c.ttlWriter == nil && now.Sub(e.SyncedAt) > interval {
			// Needs sync, but keep the ref so the refresh updates in place.
			slog.LogAttrs(ctx, slog.LevelDebug, "cached key is stale",
				slog.String("key", pendla.Key{Type: keyType, ID: id}.String()),
				slog.Time("synced_at", e.SyncedAt),
			)
			results[i] = Result{Ref: e.Ref}
			c.countMiss(keyType)
			continue
		}
		results[i] = Result{Value: e.Value, Ref: e.Ref}
		c.countHit(keyType)
	}
	return results
}

// SetCached writes a value through whichever capability the backend exposes,
// stamping SyncedAt with the current time. prev threads the ref from an
// earlier read; it is nil for first-time inserts and unused by TTL backends.
func (c *Cache) SetCached(ctx context.Context, keyType, id string, prev pendla.Ref, value []byte, ttl time.Duration) error {
	key := pendla.Key{Type: keyType, ID: id}
	entry := pendla.Entry{Value: value, SyncedAt: c.now()}

	if c.ttlWriter != nil {
		return c.ttlWriter.SetWithTTL(ctx, key, entry, ttl)
	}
	return c.refWriter.PutWithRef(ctx, key, prev, entry)
}

// FetchFunc retrieves the current upstream value for one id. It returns
// pendla.ErrNotFound when the upstream has nothing for the id.
type FetchFunc func(ctx context.Context, id string) ([]byte, error)

// GetOrFetch resolves every id, calling fetch for each miss and writing
// successful results back. Fetch failures are per-id: the batch continues
// and the failed id resolves to nil. The returned slice is ordered like ids.
func (c *Cache) GetOrFetch(ctx context.Context, keyType string, ids []string, fetch FetchFunc, interval time.Duration) [][]byte {
	cached := c.GetCached(ctx, keyType, ids, interval)

	out := make([][]byte, len(ids))
	for i, id := range ids {
		if cached[i].Value != nil {
			out[i] = cached[i].Value
			continue
		}

		value, err := fetch(ctx, id)
		if err != nil {
			if errors.Is(err, pendla.ErrNotFound) {
				slog.LogAttrs(ctx, slog.LevelDebug, "upstream has no data for key",
					slog.String("key", pendla.Key{Type: keyType, ID: id}.String()),
				)
			} else {
				slog.LogAttrs(ctx, slog.LevelWarn, "upstream fetch failed",
					slog.String("key", pendla.Key{Type: keyType, ID: id}.String()),
					slog.String("error", err.Error()),
				)
				c.countRefreshError(keyType)
			}
			continue
		}

		out[i] = value
		// Write-back is best effort; a failed store never fails the read.
		if err := c.SetCached(ctx, keyType, id, cached[i].Ref, value, interval); err != nil {
			slog.LogAttrs(ctx, slog.LevelWarn, "cache write-back failed",
				slog.String("key", pendla.Key{Type: keyType, ID: id}.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	return out
}

func (c *Cache) countHit(keyType string) {
	if c.metrics != nil {
		c.metrics.CacheHits.WithLabelValues(keyType).Inc()
	}
}

func (c *Cache) countMiss(keyType string) {
	if c.metrics != nil {
		c.metrics.CacheMisses.WithLabelValues(keyType).Inc()
	}
}

func (c *Cache) countMisses(keyType string, n int) {
	if c.metrics != nil {
		c.metrics.CacheMisses.WithLabelValues(keyType).Add(float64(n))
	}
}

func (c *Cache) countRefreshError(keyType string) {
	if c.metrics != nil {
		c.metrics.RefreshErrors.WithLabelValues(keyType).Inc()
	}
}
