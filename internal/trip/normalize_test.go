package trip

import (
	"errors"
	"testing"
	"time"

	pendla "github.com/pendla/pendla/internal"
	"github.com/pendla/pendla/internal/transit"
)

func station(name, date, clock string) transit.RawLocation {
	return transit.RawLocation{Name: name, Date: date, Time: clock, Type: "ST", ExtID: "1"}
}

func address(name, date, clock string) transit.RawLocation {
	return transit.RawLocation{Name: name, Date: date, Time: clock, Type: "ADR"}
}

func metroLeg(origin, destination transit.RawLocation) transit.RawLeg {
	return transit.RawLeg{
		Type:        "JNY",
		Origin:      origin,
		Destination: destination,
		Direction:   "Kungsträdgården",
		Product:     &transit.RawProduct{Category: "MET", Line: "11"},
	}
}

func walkLeg(origin, destination transit.RawLocation, dist int, dur string) transit.RawLeg {
	return transit.RawLeg{
		Type:        "WALK",
		Origin:      origin,
		Destination: destination,
		Dist:        dist,
		Duration:    dur,
	}
}

func TestNormalizeBasicTrip(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(time.UTC)
	raw := transit.RawTrip{
		Duration: "PT25M",
		Legs: []transit.RawLeg{
			metroLeg(station("Tekniska högskolan", "2025-03-10", "11:30:00"), station("Universitetet", "2025-03-10", "11:40:00")),
			walkLeg(station("Universitetet", "2025-03-10", "11:40:00"), address("Frescativägen 8", "2025-03-10", "11:50:00"), 600, "PT10M"),
		},
	}

	its, err := n.Normalize([]transit.RawTrip{raw}, nil)
	if err != nil {
		t.Fatal(err)
	}
	it := its[0]

	if it.Duration != 25*time.Minute {
		t.Errorf("Duration = %v, want 25m", it.Duration)
	}
	if len(it.Legs) != 2 {
		t.Fatalf("legs = %d, want 2", len(it.Legs))
	}
	if it.Legs[0].Kind != pendla.LegTransit || it.Legs[0].Mode != pendla.ModeMetro || it.Legs[0].Line != "11" {
		t.Errorf("transit leg = %+v", it.Legs[0])
	}
	if it.Legs[1].Kind != pendla.LegWalk || it.Legs[1].Duration != 10*time.Minute {
		t.Errorf("walk leg = %+v", it.Legs[1])
	}

	wantStop := time.Date(2025, 3, 10, 11, 40, 0, 0, time.UTC)
	wantDest := time.Date(2025, 3, 10, 11, 50, 0, 0, time.UTC)
	if !it.ArriveAt.AtStop.Equal(wantStop) {
		t.Errorf("ArriveAt.AtStop = %v, want %v", it.ArriveAt.AtStop, wantStop)
	}
	if !it.ArriveAt.AtDestination.Equal(wantDest) {
		t.Errorf("ArriveAt.AtDestination = %v, want %v", it.ArriveAt.AtDestination, wantDest)
	}
}

func TestNormalizeMergesConsecutiveWalks(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(time.UTC)
	raw := transit.RawTrip{
		Duration: "PT20M",
		Legs: []transit.RawLeg{
			metroLeg(station("A", "2025-03-10", "11:00:00"), station("B", "2025-03-10", "11:08:00")),
			walkLeg(station("B", "2025-03-10", "11:08:00"), station("C", "2025-03-10", "11:12:00"), 300, "PT4M"),
			walkLeg(station("C", "2025-03-10", "11:12:00"), address("D", "2025-03-10", "11:20:00"), 500, "PT8M"),
		},
	}

	its, err := n.Normalize([]transit.RawTrip{raw}, nil)
	if err != nil {
		t.Fatal(err)
	}
	it := its[0]

	if len(it.Legs) != 2 {
		t.Fatalf("legs = %d, want the two walks folded into one", len(it.Legs))
	}
	walk := it.Legs[1]
	if walk.Distance != 800 {
		t.Errorf("merged walk distance = %d, want 800", walk.Distance)
	}
	if walk.Duration != 12*time.Minute {
		t.Errorf("merged walk duration = %v, want 12m", walk.Duration)
	}
	if walk.Destination.Name != "D" {
		t.Errorf("merged walk destination = %q, want the later leg's destination", walk.Destination.Name)
	}
	if walk.Origin.Name != "B" {
		t.Errorf("merged walk origin = %q, want the earlier leg's origin", walk.Origin.Name)
	}
}

func TestNormalizeWalkOverride(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(time.UTC)
	raw := transit.RawTrip{
		Duration: "PT20M",
		Legs: []transit.RawLeg{
			metroLeg(station("A", "2025-03-10", "11:00:00"), station("B", "2025-03-10", "11:08:00")),
			walkLeg(station("B", "2025-03-10", "11:08:00"), address("C", "2025-03-10", "11:20:00"), 500, "PT12M"),
		},
	}

	override := 5 * time.Minute
	its, err := n.Normalize([]transit.RawTrip{raw}, &override)
	if err != nil {
		t.Fatal(err)
	}
	it := its[0]

	walk := it.Legs[len(it.Legs)-1]
	if walk.Duration != override {
		t.Errorf("walk duration = %v, want the override %v", walk.Duration, override)
	}
	// Arrival recomputed from the previous leg's arrival, not the
	// planner's original walk estimate.
	want := time.Date(2025, 3, 10, 11, 13, 0, 0, time.UTC)
	if !walk.Destination.Time.Equal(want) {
		t.Errorf("walk arrival = %v, want %v", walk.Destination.Time, want)
	}
	if !it.ArriveAt.AtDestination.Equal(want) {
		t.Errorf("ArriveAt.AtDestination = %v, want %v", it.ArriveAt.AtDestination, want)
	}
	if !it.ArriveAt.AtStop.Equal(time.Date(2025, 3, 10, 11, 8, 0, 0, time.UTC)) {
		t.Errorf("ArriveAt.AtStop = %v", it.ArriveAt.AtStop)
	}
}

func TestNormalizeFailsClosed(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(time.UTC)

	good := transit.RawTrip{
		Duration: "PT10M",
		Legs: []transit.RawLeg{
			walkLeg(station("A", "2025-03-10", "11:00:00"), address("B", "2025-03-10", "11:10:00"), 700, "PT10M"),
		},
	}

	tests := []struct {
		name string
		bad  transit.RawTrip
	}{
		{
			name: "unknown leg type",
			bad: transit.RawTrip{Duration: "PT10M", Legs: []transit.RawLeg{{
				Type:        "TETA",
				Origin:      station("A", "2025-03-10", "11:00:00"),
				Destination: station("B", "2025-03-10", "11:10:00"),
			}}},
		},
		{
			name: "unknown location type",
			bad: transit.RawTrip{Duration: "PT10M", Legs: []transit.RawLeg{
				walkLeg(transit.RawLocation{Name: "A", Date: "2025-03-10", Time: "11:00:00", Type: "POI"},
					address("B", "2025-03-10", "11:10:00"), 100, "PT10M"),
			}},
		},
		{
			name: "unknown product category",
			bad: transit.RawTrip{Duration: "PT10M", Legs: []transit.RawLeg{
				{
					Type:        "JNY",
					Origin:      station("A", "2025-03-10", "11:00:00"),
					Destination: station("B", "2025-03-10", "11:05:00"),
					Product:     &transit.RawProduct{Category: "FUN"},
				},
				walkLeg(station("B", "2025-03-10", "11:05:00"), address("C", "2025-03-10", "11:10:00"), 100, "PT5M"),
			}},
		},
		{
			name: "no legs",
			bad:  transit.RawTrip{Duration: "PT10M"},
		},
		{
			name: "final leg not a walk",
			bad: transit.RawTrip{Duration: "PT10M", Legs: []transit.RawLeg{
				metroLeg(station("A", "2025-03-10", "11:00:00"), station("B", "2025-03-10", "11:10:00")),
			}},
		},
		{
			name: "bad duration",
			bad: transit.RawTrip{Duration: "25 minutes", Legs: []transit.RawLeg{
				walkLeg(station("A", "2025-03-10", "11:00:00"), address("B", "2025-03-10", "11:10:00"), 100, "PT10M"),
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// One bad trip fails the whole batch, good trips included.
			_, err := n.Normalize([]transit.RawTrip{good, tt.bad}, nil)
			if !errors.Is(err, pendla.ErrUnparseable) {
				t.Fatalf("Normalize error = %v, want ErrUnparseable", err)
			}
		})
	}
}

func TestNormalizeMinutePrecisionTimes(t *testing.T) {
	t.Parallel()

	// Some planner deployments emit "15:04" instead of "15:04:05".
	n := NewNormalizer(time.UTC)
	raw := transit.RawTrip{
		Duration: "PT10M",
		Legs: []transit.RawLeg{
			walkLeg(station("A", "2025-03-10", "11:00"), address("B", "2025-03-10", "11:10"), 700, "PT10M"),
		},
	}

	its, err := n.Normalize([]transit.RawTrip{raw}, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, 3, 10, 11, 10, 0, 0, time.UTC)
	if !its[0].ArriveAt.AtDestination.Equal(want) {
		t.Errorf("AtDestination = %v, want %v", its[0].ArriveAt.AtDestination, want)
	}
}

func TestNormalizeStops(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(time.UTC)
	leg := metroLeg(station("A", "2025-03-10", "11:00:00"), station("C", "2025-03-10", "11:10:00"))
	leg.Stops = []transit.RawStop{
		{Name: "A", DepDate: "2025-03-10", DepTime: "11:00:00"}, // first stop has no arrival
		{Name: "B", ArrDate: "2025-03-10", ArrTime: "11:05:00"},
		{Name: "C", ArrDate: "2025-03-10", ArrTime: "11:10:00"},
	}
	raw := transit.RawTrip{
		Duration: "PT15M",
		Legs: []transit.RawLeg{
			leg,
			walkLeg(station("C", "2025-03-10", "11:10:00"), address("D", "2025-03-10", "11:15:00"), 100, "PT5M"),
		},
	}

	its, err := n.Normalize([]transit.RawTrip{raw}, nil)
	if err != nil {
		t.Fatal(err)
	}
	stops := its[0].Legs[0].Stops
	if len(stops) != 3 {
		t.Fatalf("stops = %d, want 3", len(stops))
	}
	if !stops[0].Time.Equal(time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)) {
		t.Errorf("first stop used %v, want its departure time", stops[0].Time)
	}
}

func TestParseISODuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "PT32M", want: 32 * time.Minute},
		{in: "PT1H5M", want: time.Hour + 5*time.Minute},
		{in: "PT45S", want: 45 * time.Second},
		{in: "P1DT2H", want: 26 * time.Hour},
		{in: "P2D", want: 48 * time.Hour},
		{in: "PT0M", want: 0},
		{in: "", wantErr: true},
		{in: "32M", wantErr: true},
		{in: "PT5", wantErr: true},
		{in: "P5H", wantErr: true}, // hours outside the T section
		{in: "PTxM", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseISODuration(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseISODuration(%q) = %v, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseISODuration(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseISODuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
