package backend

import (
	"context"
	"testing"
	"time"

	pendla "github.com/pendla/pendla/internal"
)

func TestMemoryRoundTrip(t *testing.T) {
	t.Parallel()

	m, err := NewMemory(100, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	key := pendla.Key{Type: "place", ID: "E35"}
	synced := time.Now().Truncate(time.Second)
	if err := m.SetWithTTL(context.Background(), key, pendla.Entry{Value: []byte("v"), SyncedAt: synced}, time.Hour); err != nil {
		t.Fatal(err)
	}

	e, err := m.Get(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if e == nil {
		t.Fatal("stored entry not found")
	}
	if string(e.Value) != "v" {
		t.Errorf("Value = %q, want v", e.Value)
	}
	if !e.SyncedAt.Equal(synced) {
		t.Errorf("SyncedAt = %v, want %v", e.SyncedAt, synced)
	}
}

func TestMemoryAbsent(t *testing.T) {
	t.Parallel()

	m, err := NewMemory(100, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	e, err := m.Get(context.Background(), pendla.Key{Type: "place", ID: "nope"})
	if err != nil {
		t.Fatal(err)
	}
	if e != nil {
		t.Fatalf("Get on absent key = %+v, want nil", e)
	}
}

func TestMemoryExpiry(t *testing.T) {
	t.Parallel()

	m, err := NewMemory(100, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	key := pendla.Key{Type: "place", ID: "E35"}
	if err := m.SetWithTTL(context.Background(), key, pendla.Entry{Value: []byte("v")}, time.Millisecond); err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond)

	e, err := m.Get(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if e != nil {
		t.Fatal("expired entry still readable")
	}
}

func TestMemoryGetMany(t *testing.T) {
	t.Parallel()

	m, err := NewMemory(100, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := m.SetWithTTL(ctx, pendla.Key{Type: "place", ID: id}, pendla.Entry{Value: []byte(id)}, time.Hour); err != nil {
			t.Fatal(err)
		}
	}

	out, err := m.GetMany(ctx, "place", []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("GetMany returned %d entries, want 2", len(out))
	}
	if out["c"] != nil {
		t.Error("absent id present in result")
	}

	// Same id under a different key type is a different key.
	miss, err := m.GetMany(ctx, "schedule", []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(miss) != 0 {
		t.Error("key types are not isolated")
	}
}
