// Package app wires the freshness cache to the upstream fetchers.
package app

import (
	"context"
	"encoding/json"
	"time"

	pendla "github.com/pendla/pendla/internal"
	"github.com/pendla/pendla/internal/cache"
	"github.com/pendla/pendla/internal/places"
)

// RoomDirectory is the slice of the places client the room service needs.
type RoomDirectory interface {
	FindRoom(ctx context.Context, name string) ([]byte, error)
}

// RoomService serves room-directory lookups through the freshness cache.
type RoomService struct {
	cache     *cache.Cache
	directory RoomDirectory
	interval  time.Duration
}

// NewRoomService returns a RoomService that keeps room records fresh for
// the given interval.
func NewRoomService(c *cache.Cache, directory RoomDirectory, interval time.Duration) *RoomService {
	return &RoomService{cache: c, directory: directory, interval: interval}
}

// Room resolves a single room record. It returns pendla.ErrNotFound when
// neither the cache nor the directory knows the room.
func (s *RoomService) Room(ctx context.Context, name string) (json.RawMessage, error) {
	values := s.Rooms(ctx, []string{name})
	if values[name] == nil {
		return nil, pendla.ErrNotFound
	}
	return values[name], nil
}

// Rooms resolves a batch of room records. Rooms that could not be resolved
// map to nil; one failed room never fails the batch.
func (s *RoomService) Rooms(ctx context.Context, names []string) map[string]json.RawMessage {
	fetched := s.cache.GetOrFetch(ctx, pendla.KeyTypeRoom, names, s.fetchRoom, s.interval)

	out := make(map[string]json.RawMessage, len(names))
	for i, name := range names {
		out[name] = fetched[i]
	}
	return out
}

// Buildings groups the requested rooms by building.
func (s *RoomService) Buildings(ctx context.Context, names []string) map[string][]string {
	rooms := s.Rooms(ctx, names)
	raw := make(map[string][]byte, len(rooms))
	for name, data := range rooms {
		raw[name] = data
	}
	return places.BuildingsFromRooms(raw)
}

func (s *RoomService) fetchRoom(ctx context.Context, name string) ([]byte, error) {
	return s.directory.FindRoom(ctx, name)
}
