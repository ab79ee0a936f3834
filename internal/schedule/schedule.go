// Package schedule retrieves raw calendar feeds and turns them into event
// records. The raw feed text is what gets cached; parsing happens after the
// cache layer so cached and freshly-fetched feeds take the same path.
package schedule

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	pendla "github.com/pendla/pendla/internal"
)

// maxFeedSize caps how much calendar text we are willing to read (4 MB).
const maxFeedSize = 4 << 20

// Fetcher retrieves raw schedule feeds over HTTP.
type Fetcher struct {
	userAgent string
	http      *http.Client
}

// NewFetcher creates a schedule Fetcher. The provided http.Client should
// have its timeout and transport configured by the caller.
func NewFetcher(userAgent string, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{userAgent: userAgent, http: client}
}

// FetchRaw retrieves the raw text of a schedule feed. Any non-200 response
// maps to pendla.ErrNotFound; transient network failures are retried a
// bounded number of times.
func (f *Fetcher) FetchRaw(ctx context.Context, feedURL string) ([]byte, error) {
	var body []byte
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
		if err != nil {
			return fmt.Errorf("schedule: create request: %w", err)
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.http.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("schedule: do request: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("schedule feed returned HTTP %d: %w", resp.StatusCode, pendla.ErrNotFound)
		}
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("schedule: read response: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Event is one calendar event extracted from a feed.
type Event struct {
	UID      string    `json:"uid"`
	Summary  string    `json:"summary"`
	Location string    `json:"location,omitempty"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// Parser turns raw feed text into event records. The concrete wire format
// of the feed is the parser's business, not the cache's.
type Parser interface {
	Parse(raw []byte) ([]Event, error)
}

// EventsBetween filters events to those starting inside [from, to].
func EventsBetween(events []Event, from, to time.Time) []Event {
	var out []Event
	for _, e := range events {
		if e.Start.IsZero() {
			continue
		}
		if !e.Start.Before(from) && !e.Start.After(to) {
			out = append(out, e)
		}
	}
	return out
}
