package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// RoomWarmer is the slice of the room service the prewarm worker needs.
type RoomWarmer interface {
	Rooms(ctx context.Context, names []string) map[string]json.RawMessage
}

// Prewarm periodically refreshes a fixed set of room records so client
// displays never hit a cold cache after a restart or an expiry.
type Prewarm struct {
	rooms    RoomWarmer
	names    []string
	interval time.Duration
}

// NewPrewarm creates a Prewarm worker for the given room names.
func NewPrewarm(rooms RoomWarmer, names []string, interval time.Duration) *Prewarm {
	return &Prewarm{rooms: rooms, names: names, interval: interval}
}

// Run warms the cache immediately, then on every tick until ctx is cancelled.
func (w *Prewarm) Run(ctx context.Context) error {
	if len(w.names) == 0 {
		<-ctx.Done()
		return nil
	}

	w.warm(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.warm(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Prewarm) warm(ctx context.Context) {
	resolved := w.rooms.Rooms(ctx, w.names)

	missing := 0
	for _, record := range resolved {
		if record == nil {
			missing++
		}
	}
	if missing > 0 {
		slog.LogAttrs(ctx, slog.LevelWarn, "prewarm left rooms unresolved",
			slog.Int("requested", len(w.names)),
			slog.Int("missing", missing),
		)
		return
	}
	slog.LogAttrs(ctx, slog.LevelDebug, "prewarm complete",
		slog.Int("rooms", len(w.names)),
	)
}
