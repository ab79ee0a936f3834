// Package pendla defines domain types for the pendla commute service.
// This package has no project imports -- it is the dependency root.
package pendla

import (
	"context"
	"time"
)

// --- Caching ---

// Key identifies a cached record: a category plus an opaque id within it.
type Key struct {
	Type string
	ID   string
}

// String returns the flat key format persisted by every backend,
// e.g. "place-M1" or "schedule-https://...".
func (k Key) String() string { return k.Type + "-" + k.ID }

// Ref is a backend-specific handle used for in-place updates. It is an
// opaque token: nothing outside the owning backend may interpret it.
type Ref any

// Entry is one cached record.
type Entry struct {
	Value    []byte
	SyncedAt time.Time
	Ref      Ref
}

// Key types used by the service.
const (
	KeyTypeRoom     = "place"
	KeyTypeSchedule = "schedule"
)

// --- Travel modes ---

// TravelMode classifies a transit leg.
type TravelMode string

const (
	ModeMetro         TravelMode = "metro"
	ModeBus           TravelMode = "bus"
	ModeCommuterTrain TravelMode = "commuterTrain"
	ModeLightRail     TravelMode = "lightRail"
	ModeShip          TravelMode = "ship"
)

// AllModes lists every travel mode the planner understands.
var AllModes = []TravelMode{ModeMetro, ModeBus, ModeCommuterTrain, ModeLightRail, ModeShip}

// ParseMode returns the TravelMode for s, or false when unknown.
func ParseMode(s string) (TravelMode, bool) {
	for _, m := range AllModes {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// --- Itineraries ---

// Kinds of places a leg can start or end at.
const (
	PlaceStation = "station"
	PlaceAddress = "address"
)

// Place is one end of a leg: a named location with the scheduled time
// the traveller is there.
type Place struct {
	Name   string    `json:"name"`
	Time   time.Time `json:"time"`
	Lat    float64   `json:"latitude"`
	Lon    float64   `json:"longitude"`
	Kind   string    `json:"locationType"`     // "station" or "address"
	StopID string    `json:"stopId,omitempty"` // planner id, stations only
}

// Message is a service message attached to a transit leg (deviations,
// disruptions and the like).
type Message struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Priority int    `json:"priority"`
}

// Stop is an intermediate stop passed along a transit leg.
type Stop struct {
	Name string    `json:"name"`
	Time time.Time `json:"time"`
}

// LegKind discriminates the two leg shapes.
type LegKind string

const (
	LegTransit LegKind = "publicTransport"
	LegWalk    LegKind = "walk"
)

// Leg is one segment of an itinerary: a transit ride or a walk.
type Leg struct {
	Kind        LegKind `json:"type"`
	Origin      Place   `json:"origin"`
	Destination Place   `json:"destination"`
	Stops       []Stop  `json:"stops,omitempty"`

	// Transit legs.
	Mode      TravelMode `json:"mode,omitempty"`
	Line      string     `json:"line,omitempty"`
	Direction string     `json:"direction,omitempty"` // final station of the service
	Messages  []Message  `json:"messages,omitempty"`

	// Walk legs.
	Distance int           `json:"distance,omitempty"` // meters
	Duration time.Duration `json:"walkTime,omitempty"`
}

// ArriveAt is when an itinerary reaches its last transit stop and its
// final destination. The two differ by the arrival walk.
type ArriveAt struct {
	AtStop        time.Time `json:"station"`
	AtDestination time.Time `json:"destination"`
}

// Itinerary is a normalized trip suggestion. Its final leg is always a
// walk; itineraries that cannot be normalized to that shape are never
// emitted.
type Itinerary struct {
	Duration time.Duration `json:"totalDuration"`
	Legs     []Leg         `json:"parts"`
	ArriveAt ArriveAt      `json:"arriveAt"`
}

// TravelMethods returns the distinct transit modes used by the itinerary,
// in leg order.
func (it Itinerary) TravelMethods() []TravelMode {
	var modes []TravelMode
	for _, leg := range it.Legs {
		if leg.Kind != LegTransit || leg.Mode == "" {
			continue
		}
		seen := false
		for _, m := range modes {
			if m == leg.Mode {
				seen = true
				break
			}
		}
		if !seen {
			modes = append(modes, leg.Mode)
		}
	}
	return modes
}

// --- Request metadata ---

type ctxKey int

const ctxKeyRequestID ctxKey = iota

// ContextWithRequestID returns a context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return id
	}
	return ""
}
