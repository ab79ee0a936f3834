package transit

import (
	"fmt"
	"strconv"
)

// PointRole is how a point participates in a trip plan.
type PointRole string

const (
	RoleOrigin      PointRole = "origin"
	RoleDestination PointRole = "destination"
	RoleVia         PointRole = "via"
	RoleAvoid       PointRole = "avoid"
)

// Point is a location included in a plan request. Origins and destinations
// contribute query parameters; via and avoid points contribute the planner's
// pipe-delimited directive strings instead.
type Point interface {
	Role() PointRole
	// Params returns the query parameters for an origin or destination
	// point. Calling it on a via or avoid point is a programming error.
	Params() (map[string]string, error)
}

// StopPoint is a trip point anchored at a transit stop by planner id.
type StopPoint struct {
	PointRole PointRole
	ID        string
}

// Role returns the point's role in the plan.
func (p StopPoint) Role() PointRole { return p.PointRole }

// Params returns originExtId or destExtId for the stop.
func (p StopPoint) Params() (map[string]string, error) {
	switch p.PointRole {
	case RoleOrigin:
		return map[string]string{"originExtId": p.ID}, nil
	case RoleDestination:
		return map[string]string{"destExtId": p.ID}, nil
	default:
		return nil, fmt.Errorf("stop point with role %q has no query parameters", p.PointRole)
	}
}

// Via boarding directives defined by the planner API.
const (
	ViaBoardAndLeave   = "EXR"  // boarding and disembarking required
	ViaNoBoard         = "NER"  // boarding not required
	ViaNoLeave         = "NXR"  // disembarking not required
	ViaNoBoardNorLeave = "NEXR" // neither required
	ViaDefault         = "EXT"  // planner default, no weighting
)

// ViaString renders the pipe-delimited via directive for the stop.
// maxWaitMinutes <= 0, empty status and empty products are omitted.
func (p StopPoint) ViaString(maxWaitMinutes int, status string, products string) (string, error) {
	if p.PointRole != RoleVia {
		return "", fmt.Errorf("stop point has role %q, not via", p.PointRole)
	}
	s := p.ID
	if maxWaitMinutes > 0 {
		s += "|" + strconv.Itoa(maxWaitMinutes)
	}
	if status != "" {
		s += "|" + status
	}
	if products != "" {
		s += "|" + products
	}
	return s, nil
}

// AvoidString renders the pipe-delimited avoid directive for the stop.
// passVia permits passing through without stopping; changeVia permits
// changing there.
func (p StopPoint) AvoidString(passVia, changeVia bool) (string, error) {
	if p.PointRole != RoleAvoid {
		return "", fmt.Errorf("stop point has role %q, not avoid", p.PointRole)
	}
	s := p.ID
	if passVia {
		s += "|NCAVO"
	} else if changeVia {
		s += "|NPAVO"
	}
	return s, nil
}

// CoordPoint is a trip point anchored at a coordinate. Only origins and
// destinations can be coordinates; via and avoid require stops.
type CoordPoint struct {
	PointRole PointRole
	Lat, Lon  float64
}

// Role returns the point's role in the plan.
func (p CoordPoint) Role() PointRole { return p.PointRole }

// Params returns the coordinate query parameters for the point.
func (p CoordPoint) Params() (map[string]string, error) {
	var prefix string
	switch p.PointRole {
	case RoleOrigin:
		prefix = "origin"
	case RoleDestination:
		prefix = "dest"
	default:
		return nil, fmt.Errorf("coordinate points do not support role %q", p.PointRole)
	}
	return map[string]string{
		prefix + "CoordLat":  strconv.FormatFloat(p.Lat, 'f', -1, 64),
		prefix + "CoordLong": strconv.FormatFloat(p.Lon, 'f', -1, 64),
	}, nil
}
