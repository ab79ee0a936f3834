package transit

import (
	"testing"

	pendla "github.com/pendla/pendla/internal"
)

func TestStopPointParams(t *testing.T) {
	t.Parallel()

	origin := StopPoint{PointRole: RoleOrigin, ID: "9204"}
	params, err := origin.Params()
	if err != nil {
		t.Fatal(err)
	}
	if params["originExtId"] != "9204" {
		t.Errorf("params = %v", params)
	}

	dest := StopPoint{PointRole: RoleDestination, ID: "9600"}
	params, err = dest.Params()
	if err != nil {
		t.Fatal(err)
	}
	if params["destExtId"] != "9600" {
		t.Errorf("params = %v", params)
	}

	via := StopPoint{PointRole: RoleVia, ID: "1"}
	if _, err := via.Params(); err == nil {
		t.Error("via point produced origin/destination params")
	}
}

func TestCoordPointParams(t *testing.T) {
	t.Parallel()

	dest := CoordPoint{PointRole: RoleDestination, Lat: 59.345, Lon: 18.072}
	params, err := dest.Params()
	if err != nil {
		t.Fatal(err)
	}
	if params["destCoordLat"] != "59.345" || params["destCoordLong"] != "18.072" {
		t.Errorf("params = %v", params)
	}

	via := CoordPoint{PointRole: RoleVia}
	if _, err := via.Params(); err == nil {
		t.Error("coordinate via point accepted")
	}
}

func TestViaString(t *testing.T) {
	t.Parallel()

	via := StopPoint{PointRole: RoleVia, ID: "9001"}

	s, err := via.ViaString(0, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if s != "9001" {
		t.Errorf("ViaString = %q, want bare id", s)
	}

	s, err = via.ViaString(10, ViaBoardAndLeave, "74")
	if err != nil {
		t.Fatal(err)
	}
	if s != "9001|10|EXR|74" {
		t.Errorf("ViaString = %q", s)
	}

	notVia := StopPoint{PointRole: RoleOrigin, ID: "1"}
	if _, err := notVia.ViaString(0, "", ""); err == nil {
		t.Error("ViaString on a non-via point succeeded")
	}
}

func TestAvoidString(t *testing.T) {
	t.Parallel()

	avoid := StopPoint{PointRole: RoleAvoid, ID: "9001"}

	s, err := avoid.AvoidString(false, false)
	if err != nil {
		t.Fatal(err)
	}
	if s != "9001" {
		t.Errorf("AvoidString = %q, want bare id", s)
	}

	s, err = avoid.AvoidString(true, false)
	if err != nil {
		t.Fatal(err)
	}
	if s != "9001|NCAVO" {
		t.Errorf("AvoidString = %q", s)
	}

	s, err = avoid.AvoidString(false, true)
	if err != nil {
		t.Fatal(err)
	}
	if s != "9001|NPAVO" {
		t.Errorf("AvoidString = %q", s)
	}
}

func TestProductMask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		modes []pendla.TravelMode
		want  int
	}{
		{modes: nil, want: 0},
		{modes: []pendla.TravelMode{pendla.ModeMetro}, want: 2},
		{modes: []pendla.TravelMode{pendla.ModeCommuterTrain}, want: 1},
		{modes: []pendla.TravelMode{pendla.ModeMetro, pendla.ModeBus}, want: 10},
		{modes: pendla.AllModes, want: 79}, // 1+2+4+8+64
	}
	for _, tt := range tests {
		if got := ProductMask(tt.modes); got != tt.want {
			t.Errorf("ProductMask(%v) = %d, want %d", tt.modes, got, tt.want)
		}
	}
}

func TestModeForCategory(t *testing.T) {
	t.Parallel()

	if mode, ok := ModeForCategory("MET"); !ok || mode != pendla.ModeMetro {
		t.Errorf("ModeForCategory(MET) = %v, %v", mode, ok)
	}
	if _, ok := ModeForCategory("FUN"); ok {
		t.Error("unknown category accepted")
	}
}
