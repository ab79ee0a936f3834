package transit

import (
	"github.com/tidwall/gjson"
)

// Raw trip records mirror the planner's wire shape closely enough for the
// normalizer to work from, without committing the rest of the system to the
// planner's nesting. All times are the planner's local date/time strings.

// RawTrip is one trip suggestion as returned by the planner.
type RawTrip struct {
	Duration string // ISO-8601 duration
	Legs     []RawLeg
}

// RawLeg is one segment of a raw trip.
type RawLeg struct {
	Type        string // "JNY", "WALK", ...
	Origin      RawLocation
	Destination RawLocation
	Direction   string // final station of the service, journeys only
	Product     *RawProduct
	Messages    []RawMessage
	Stops       []RawStop

	// Walk legs.
	Dist     int
	Duration string // ISO-8601 duration
}

// RawLocation is a leg endpoint.
type RawLocation struct {
	Name     string
	Date     string // "2006-01-02"
	Time     string // "15:04:05"
	Type     string // "ST" or "ADR"
	ExtID    string
	Lat, Lon float64
}

// RawProduct describes the service operating a journey leg.
type RawProduct struct {
	Category string // planner product category, e.g. "MET"
	Name     string
	Line     string
}

// RawMessage is a service message attached to a leg.
type RawMessage struct {
	Head     string
	Text     string
	Priority int
}

// RawStop is an intermediate stop along a journey leg. The first stop of a
// series has no arrival time; the departure time stands in for it.
type RawStop struct {
	Name    string
	ArrDate string
	ArrTime string
	DepDate string
	DepTime string
}

// parseTrips extracts the Trip array from a planner response body.
func parseTrips(body []byte) []RawTrip {
	tripResults := gjson.GetBytes(body, "Trip").Array()
	trips := make([]RawTrip, 0, len(tripResults))
	for _, t := range tripResults {
		trip := RawTrip{Duration: t.Get("duration").String()}
		for _, l := range t.Get("LegList.Leg").Array() {
			trip.Legs = append(trip.Legs, parseLeg(l))
		}
		trips = append(trips, trip)
	}
	return trips
}

func parseLocation(l gjson.Result) RawLocation {
	return RawLocation{
		Name:  l.Get("name").String(),
		Date:  l.Get("date").String(),
		Time:  l.Get("time").String(),
		Type:  l.Get("type").String(),
		ExtID: l.Get("extId").String(),
		Lat:   l.Get("lat").Float(),
		Lon:   l.Get("lon").Float(),
	}
}

func parseLeg(l gjson.Result) RawLeg {
	leg := RawLeg{
		Type:        l.Get("type").String(),
		Origin:      parseLocation(l.Get("Origin")),
		Destination: parseLocation(l.Get("Destination")),
		Direction:   l.Get("direction").String(),
		Dist:        int(l.Get("dist").Int()),
		Duration:    l.Get("duration").String(),
	}
	if p := l.Get("Product"); p.Exists() {
		leg.Product = &RawProduct{
			Category: p.Get("catIn").String(),
			Name:     p.Get("name").String(),
			Line:     p.Get("line").String(),
		}
	}
	for _, m := range l.Get("Messages.Message").Array() {
		leg.Messages = append(leg.Messages, RawMessage{
			Head:     m.Get("head").String(),
			Text:     m.Get("text").String(),
			Priority: int(m.Get("priority").Int()),
		})
	}
	for _, s := range l.Get("Stops.Stop").Array() {
		leg.Stops = append(leg.Stops, RawStop{
			Name:    s.Get("name").String(),
			ArrDate: s.Get("arrDate").String(),
			ArrTime: s.Get("arrTime").String(),
			DepDate: s.Get("depDate").String(),
			DepTime: s.Get("depTime").String(),
		})
	}
	return leg
}
