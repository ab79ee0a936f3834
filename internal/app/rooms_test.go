package app

import (
	"context"
	"errors"
	"testing"
	"time"

	pendla "github.com/pendla/pendla/internal"
	"github.com/pendla/pendla/internal/cache"
	"github.com/pendla/pendla/internal/testutil"
)

// fakeDirectory resolves rooms from a fixed map, counting lookups.
type fakeDirectory struct {
	records map[string]string
	calls   map[string]int
}

func newFakeDirectory(records map[string]string) *fakeDirectory {
	return &fakeDirectory{records: records, calls: make(map[string]int)}
}

func (d *fakeDirectory) FindRoom(_ context.Context, name string) ([]byte, error) {
	d.calls[name]++
	rec, ok := d.records[name]
	if !ok {
		return nil, pendla.ErrNotFound
	}
	return []byte(rec), nil
}

func newRoomService(t *testing.T, dir *fakeDirectory) (*RoomService, *testutil.FakeBackend) {
	t.Helper()
	fb := testutil.NewFakeBackend()
	c, err := cache.New(fb)
	if err != nil {
		t.Fatal(err)
	}
	return NewRoomService(c, dir, 4*time.Hour), fb
}

func TestRoomFetchesAndCaches(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory(map[string]string{"E35": `{"name":"E35"}`})
	svc, fb := newRoomService(t, dir)
	ctx := context.Background()

	rec, err := svc.Room(ctx, "E35")
	if err != nil {
		t.Fatal(err)
	}
	if string(rec) != `{"name":"E35"}` {
		t.Errorf("Room = %s", rec)
	}

	// Second read comes from the cache.
	if _, err := svc.Room(ctx, "E35"); err != nil {
		t.Fatal(err)
	}
	if dir.calls["E35"] != 1 {
		t.Errorf("directory called %d times, want 1", dir.calls["E35"])
	}
	if fb.Inserts != 1 {
		t.Errorf("backend inserts = %d, want 1", fb.Inserts)
	}
}

func TestRoomNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newRoomService(t, newFakeDirectory(nil))
	_, err := svc.Room(context.Background(), "ghost")
	if !errors.Is(err, pendla.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestRoomsPartialBatch(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory(map[string]string{
		"E35": `{"name":"E35"}`,
		"M1":  `{"name":"M1"}`,
	})
	svc, _ := newRoomService(t, dir)

	out := svc.Rooms(context.Background(), []string{"E35", "ghost", "M1"})
	if out["E35"] == nil || out["M1"] == nil {
		t.Error("known rooms missing from batch result")
	}
	if out["ghost"] != nil {
		t.Error("unknown room resolved to a value")
	}
}

func TestBuildings(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory(map[string]string{
		"E35": `{"information":{"location":{"buildingName":"E-huset"}}}`,
		"E52": `{"information":{"location":{"buildingName":"E-huset"}}}`,
	})
	svc, _ := newRoomService(t, dir)

	buildings := svc.Buildings(context.Background(), []string{"E35", "E52", "ghost"})
	if len(buildings["E-huset"]) != 2 {
		t.Errorf("buildings = %v", buildings)
	}
}
