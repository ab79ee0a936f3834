// Package testutil provides shared fakes for package tests.
package testutil

import (
	"context"
	"sync"

	pendla "github.com/pendla/pendla/internal"
	"github.com/pendla/pendla/internal/backend"
)

var (
	_ backend.Store     = (*FakeBackend)(nil)
	_ backend.RefWriter = (*FakeBackend)(nil)
)

// FakeBackend is an in-memory backend.Store + backend.RefWriter for testing.
// Every operation is recorded; failure modes are injectable per call.
type FakeBackend struct {
	mu      sync.Mutex
	entries map[pendla.Key]pendla.Entry
	nextRef int

	// GetErr, when non-nil, is returned by every read.
	GetErr error
	// PutErr, when non-nil, is returned by every write.
	PutErr error

	// Puts counts PutWithRef calls, inserts and updates separately.
	Inserts int
	Updates int
}

// NewFakeBackend returns an empty FakeBackend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{entries: make(map[pendla.Key]pendla.Entry)}
}

// Seed stores an entry directly, bypassing counters.
func (f *FakeBackend) Seed(key pendla.Key, e pendla.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.Ref == nil {
		f.nextRef++
		e.Ref = f.nextRef
	}
	f.entries[key] = e
}

// Get returns the entry for key, or (nil, nil) when absent.
func (f *FakeBackend) Get(_ context.Context, key pendla.Key) (*pendla.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	e, ok := f.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// GetMany returns the stored entries for ids within keyType.
func (f *FakeBackend) GetMany(_ context.Context, keyType string, ids []string) (map[string]*pendla.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	out := make(map[string]*pendla.Entry, len(ids))
	for _, id := range ids {
		if e, ok := f.entries[pendla.Key{Type: keyType, ID: id}]; ok {
			e := e
			out[id] = &e
		}
	}
	return out, nil
}

// PutWithRef inserts when prev is nil and updates in place otherwise.
func (f *FakeBackend) PutWithRef(_ context.Context, key pendla.Key, prev pendla.Ref, e pendla.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PutErr != nil {
		return f.PutErr
	}
	if prev == nil {
		f.Inserts++
		f.nextRef++
		e.Ref = f.nextRef
	} else {
		f.Updates++
		e.Ref = prev
	}
	f.entries[key] = e
	return nil
}

// Close is a no-op.
func (f *FakeBackend) Close() error { return nil }

// Entry returns the stored entry and whether it exists.
func (f *FakeBackend) Entry(key pendla.Key) (pendla.Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[key]
	return e, ok
}

// Len returns the number of stored entries.
func (f *FakeBackend) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}
