package schedule

import (
	"bytes"
	"fmt"

	ics "github.com/arran4/golang-ical"

	pendla "github.com/pendla/pendla/internal"
)

// ICalParser parses iCalendar feeds into events.
type ICalParser struct{}

var _ Parser = ICalParser{}

// Parse extracts the VEVENT components of an iCalendar feed. A feed that
// yields no events at all is unparseable rather than empty: calendar feeds
// for this service always carry at least the term's bookings, so an empty
// result means the text was not a calendar.
func (ICalParser) Parse(raw []byte) ([]Event, error) {
	cal, err := ics.ParseCalendar(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w: %v", pendla.ErrUnparseable, err)
	}

	vevents := cal.Events()
	if len(vevents) == 0 {
		return nil, fmt.Errorf("calendar contains no events: %w", pendla.ErrUnparseable)
	}

	events := make([]Event, 0, len(vevents))
	for _, ve := range vevents {
		e := Event{UID: ve.Id()}
		if p := ve.GetProperty(ics.ComponentPropertySummary); p != nil {
			e.Summary = p.Value
		}
		if p := ve.GetProperty(ics.ComponentPropertyLocation); p != nil {
			e.Location = p.Value
		}
		if start, err := ve.GetStartAt(); err == nil {
			e.Start = start
		}
		if end, err := ve.GetEndAt(); err == nil {
			e.End = end
		}
		events = append(events, e)
	}
	return events, nil
}
