// Package trip holds the itinerary normalizer and the windowed trip search.
package trip

import (
	"fmt"
	"time"

	pendla "github.com/pendla/pendla/internal"
	"github.com/pendla/pendla/internal/transit"
)

// Normalizer converts raw planner trips into the uniform itinerary model.
// It fails closed: a trip with any unrecognized leg is discarded whole, and
// one discarded trip fails the whole batch, so callers never see a result
// they cannot tell apart from "these were all the trips".
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer creates a Normalizer that interprets the planner's local
// date/time strings in loc.
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Normalize converts a raw trip batch. walkOverride, when non-nil, replaces
// the duration of each itinerary's final walk and shifts its arrival
// accordingly.
func (n *Normalizer) Normalize(trips []transit.RawTrip, walkOverride *time.Duration) ([]pendla.Itinerary, error) {
	out := make([]pendla.Itinerary, 0, len(trips))
	for _, raw := range trips {
		it, err := n.normalizeTrip(raw, walkOverride)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

func (n *Normalizer) normalizeTrip(raw transit.RawTrip, walkOverride *time.Duration) (pendla.Itinerary, error) {
	var it pendla.Itinerary

	if len(raw.Legs) == 0 {
		return it, fmt.Errorf("%w: trip has no legs", pendla.ErrUnparseable)
	}

	total, err := parseISODuration(raw.Duration)
	if err != nil {
		return it, fmt.Errorf("%w: trip duration %q", pendla.ErrUnparseable, raw.Duration)
	}
	it.Duration = total

	for _, rawLeg := range raw.Legs {
		leg, err := n.convertLeg(rawLeg)
		if err != nil {
			return pendla.Itinerary{}, err
		}

		// The planner likes to split a single walk into several back to
		// back ones; fold them into one.
		if last := len(it.Legs) - 1; leg.Kind == pendla.LegWalk && last >= 0 && it.Legs[last].Kind == pendla.LegWalk {
			it.Legs[last].Destination = leg.Destination
			it.Legs[last].Distance += leg.Distance
			it.Legs[last].Duration += leg.Duration
			continue
		}
		it.Legs = append(it.Legs, leg)
	}

	lastIdx := len(it.Legs) - 1
	if it.Legs[lastIdx].Kind != pendla.LegWalk {
		return pendla.Itinerary{}, fmt.Errorf("%w: final leg is %s, not a walk", pendla.ErrUnparseable, it.Legs[lastIdx].Kind)
	}

	if walkOverride != nil {
		it.Legs[lastIdx].Duration = *walkOverride
		base := it.Legs[lastIdx].Origin.Time
		if lastIdx > 0 {
			base = it.Legs[lastIdx-1].Destination.Time
		}
		it.Legs[lastIdx].Destination.Time = base.Add(*walkOverride)
	}

	it.ArriveAt = pendla.ArriveAt{
		AtStop:        it.Legs[lastIdx].Origin.Time,
		AtDestination: it.Legs[lastIdx].Destination.Time,
	}
	return it, nil
}

func (n *Normalizer) convertLeg(raw transit.RawLeg) (pendla.Leg, error) {
	origin, err := n.convertLocation(raw.Origin)
	if err != nil {
		return pendla.Leg{}, err
	}
	destination, err := n.convertLocation(raw.Destination)
	if err != nil {
		return pendla.Leg{}, err
	}

	leg := pendla.Leg{Origin: origin, Destination: destination}

	for _, s := range raw.Stops {
		// The first stop in a series has no arrival time.
		date, clock := s.ArrDate, s.ArrTime
		if date == "" {
			date, clock = s.DepDate, s.DepTime
		}
		t, err := n.parseLocalTime(date, clock)
		if err != nil {
			return pendla.Leg{}, fmt.Errorf("%w: stop %q time", pendla.ErrUnparseable, s.Name)
		}
		leg.Stops = append(leg.Stops, pendla.Stop{Name: s.Name, Time: t})
	}

	switch raw.Type {
	case "JNY":
		leg.Kind = pendla.LegTransit
		leg.Direction = raw.Direction
		if raw.Product != nil {
			mode, ok := transit.ModeForCategory(raw.Product.Category)
			if !ok {
				return pendla.Leg{}, fmt.Errorf("%w: unknown product category %q", pendla.ErrUnparseable, raw.Product.Category)
			}
			leg.Mode = mode
			leg.Line = raw.Product.Line
		}
		for _, m := range raw.Messages {
			leg.Messages = append(leg.Messages, pendla.Message{
				Title:    m.Head,
				Body:     m.Text,
				Priority: m.Priority,
			})
		}
	case "WALK":
		leg.Kind = pendla.LegWalk
		leg.Distance = raw.Dist
		d, err := parseISODuration(raw.Duration)
		if err != nil {
			return pendla.Leg{}, fmt.Errorf("%w: walk duration %q", pendla.ErrUnparseable, raw.Duration)
		}
		leg.Duration = d
	default:
		return pendla.Leg{}, fmt.Errorf("%w: unknown leg type %q", pendla.ErrUnparseable, raw.Type)
	}

	return leg, nil
}

func (n *Normalizer) convertLocation(raw transit.RawLocation) (pendla.Place, error) {
	var kind string
	switch raw.Type {
	case "ST":
		kind = pendla.PlaceStation
	case "ADR":
		kind = pendla.PlaceAddress
	default:
		return pendla.Place{}, fmt.Errorf("%w: unknown location type %q for %q", pendla.ErrUnparseable, raw.Type, raw.Name)
	}

	t, err := n.parseLocalTime(raw.Date, raw.Time)
	if err != nil {
		return pendla.Place{}, fmt.Errorf("%w: location %q time %q %q", pendla.ErrUnparseable, raw.Name, raw.Date, raw.Time)
	}

	return pendla.Place{
		Name:   raw.Name,
		Time:   t,
		Lat:    raw.Lat,
		Lon:    raw.Lon,
		Kind:   kind,
		StopID: raw.ExtID,
	}, nil
}

// parseLocalTime combines the planner's split date and time strings.
func (n *Normalizer) parseLocalTime(date, clock string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", date+"T"+clock, n.loc); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04", date+"T"+clock, n.loc)
}
