// Package backend defines the storage adapter the freshness cache runs on.
//
// A concrete backend implements Store plus whichever write capability its
// storage model supports: RefWriter for stores that distinguish inserts from
// in-place updates, TTLWriter for stores with native per-key expiry. The
// cache selects its access pattern once, at construction, by asserting for
// these interfaces.
package backend

import (
	"context"
	"time"

	pendla "github.com/pendla/pendla/internal"
)

// Store is the minimum capability every backend implements.
type Store interface {
	// Get returns the entry for key, or (nil, nil) when absent.
	Get(ctx context.Context, key pendla.Key) (*pendla.Entry, error)

	// GetMany returns the entries for ids within keyType. Absent ids are
	// simply missing from the result map. Backends without a batched
	// query fan out point lookups and join before returning.
	GetMany(ctx context.Context, keyType string, ids []string) (map[string]*pendla.Entry, error)

	// Close releases backend resources.
	Close() error
}

// RefWriter is implemented by backends that need a prior reference to tell
// an update apart from an insert.
type RefWriter interface {
	// PutWithRef inserts when prev is nil and updates in place otherwise.
	// prev is the Ref returned by an earlier Get/GetMany for the same key.
	PutWithRef(ctx context.Context, key pendla.Key, prev pendla.Ref, e pendla.Entry) error
}

// TTLWriter is implemented by backends with native per-key expiry. The
// freshness cache skips its staleness check for these backends: an absent
// read already means the entry needs a refresh.
type TTLWriter interface {
	SetWithTTL(ctx context.Context, key pendla.Key, e pendla.Entry, ttl time.Duration) error
}
