package app

import (
	"context"
	"time"

	pendla "github.com/pendla/pendla/internal"
	"github.com/pendla/pendla/internal/cache"
	"github.com/pendla/pendla/internal/schedule"
)

// ScheduleFetcher is the slice of the schedule fetcher this service needs.
type ScheduleFetcher interface {
	FetchRaw(ctx context.Context, feedURL string) ([]byte, error)
}

// ScheduleService serves calendar feeds through the freshness cache. The
// cache holds the raw feed text; parsing happens on the way out so cached
// and freshly-fetched feeds take the same path.
type ScheduleService struct {
	cache    *cache.Cache
	fetcher  ScheduleFetcher
	parser   schedule.Parser
	interval time.Duration
}

// NewScheduleService returns a ScheduleService that keeps raw feeds fresh
// for the given interval.
func NewScheduleService(c *cache.Cache, fetcher ScheduleFetcher, parser schedule.Parser, interval time.Duration) *ScheduleService {
	return &ScheduleService{cache: c, fetcher: fetcher, parser: parser, interval: interval}
}

// Events resolves a feed and returns its events starting inside [from, to].
// It returns pendla.ErrNotFound when the feed cannot be retrieved and
// pendla.ErrUnparseable when the feed text is not a calendar.
func (s *ScheduleService) Events(ctx context.Context, feedURL string, from, to time.Time) ([]schedule.Event, error) {
	raw, err := s.raw(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	events, err := s.parser.Parse(raw)
	if err != nil {
		return nil, err
	}
	return schedule.EventsBetween(events, from, to), nil
}

// Validate checks that a feed URL resolves to a parseable calendar. The
// result goes through the cache like any other feed read, so a validation
// also warms the cache for the first real request.
func (s *ScheduleService) Validate(ctx context.Context, feedURL string) error {
	raw, err := s.raw(ctx, feedURL)
	if err != nil {
		return err
	}
	_, err = s.parser.Parse(raw)
	return err
}

func (s *ScheduleService) raw(ctx context.Context, feedURL string) ([]byte, error) {
	fetched := s.cache.GetOrFetch(ctx, pendla.KeyTypeSchedule, []string{feedURL}, s.fetcher.FetchRaw, s.interval)
	if fetched[0] == nil {
		return nil, pendla.ErrNotFound
	}
	return fetched[0], nil
}
