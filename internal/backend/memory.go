package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"

	pendla "github.com/pendla/pendla/internal"
)

// memEntry wraps a cached entry with its expiration time.
type memEntry struct {
	entry     pendla.Entry
	expiresAt time.Time
}

// Memory is an in-process W-TinyLFU backend built on otter. It has native
// per-key expiry, so it implements TTLWriter and the freshness cache never
// re-checks SyncedAt for it.
type Memory struct {
	cache *otter.Cache[string, memEntry]
}

var (
	_ Store     = (*Memory)(nil)
	_ TTLWriter = (*Memory)(nil)
)

// NewMemory creates a memory backend with the given max entry count and
// default TTL.
func NewMemory(maxSize int, defaultTTL time.Duration) (*Memory, error) {
	c, err := otter.New[string, memEntry](&otter.Options[string, memEntry]{
		MaximumSize:      maxSize,
		ExpiryCalculator: otter.ExpiryWriting[string, memEntry](defaultTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("create memory backend: %w", err)
	}
	return &Memory{cache: c}, nil
}

// Get returns the entry for key if present and not expired.
func (m *Memory) Get(_ context.Context, key pendla.Key) (*pendla.Entry, error) {
	e, ok := m.cache.GetIfPresent(key.String())
	if !ok {
		return nil, nil
	}
	if time.Now().After(e.expiresAt) {
		m.cache.Invalidate(key.String())
		return nil, nil
	}
	entry := e.entry
	return &entry, nil
}

// GetMany performs point lookups for each id. There is no I/O to batch here.
func (m *Memory) GetMany(ctx context.Context, keyType string, ids []string) (map[string]*pendla.Entry, error) {
	out := make(map[string]*pendla.Entry, len(ids))
	for _, id := range ids {
		e, err := m.Get(ctx, pendla.Key{Type: keyType, ID: id})
		if err != nil {
			return nil, err
		}
		if e != nil {
			out[id] = e
		}
	}
	return out, nil
}

// SetWithTTL stores an entry with per-key expiry.
func (m *Memory) SetWithTTL(_ context.Context, key pendla.Key, e pendla.Entry, ttl time.Duration) error {
	m.cache.Set(key.String(), memEntry{
		entry:     e,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// Close drops all entries.
func (m *Memory) Close() error {
	m.cache.InvalidateAll()
	return nil
}
