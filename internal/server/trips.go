package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pendla "github.com/pendla/pendla/internal"
	"github.com/pendla/pendla/internal/transit"
	"github.com/pendla/pendla/internal/trip"
)

func (s *server) handleTrips(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseTripRequest(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	trips, err := s.deps.Searcher.Search(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

// parseTripRequest validates the trip search query parameters:
//
//	startStationId            planner stop id of the origin (required)
//	arriveTime                RFC 3339 target arrival (required)
//	destinationStationId      planner stop id of the destination, or
//	destinationLatitude/Longitude  a coordinate destination
//	includedTravelMethods     comma-separated modes; empty means all
//	overriddenWalkingTime     minutes replacing the final walk's duration
//	hoursBeforeArrivalTime    window before arriveTime (default from config)
//	hoursAfterArrivalTime     window after arriveTime (default from config)
//	minChangeTime             minimum transfer minutes
//	maxChangeTime             maximum transfer minutes
func (s *server) parseTripRequest(q url.Values) (trip.SearchRequest, error) {
	var req trip.SearchRequest

	originID := q.Get("startStationId")
	if originID == "" {
		return req, fmt.Errorf("%w: startStationId is required", pendla.ErrBadRequest)
	}
	req.Origin = transit.StopPoint{PointRole: transit.RoleOrigin, ID: originID}

	arrive := q.Get("arriveTime")
	if arrive == "" {
		return req, fmt.Errorf("%w: arriveTime is required", pendla.ErrBadRequest)
	}
	target, err := time.Parse(time.RFC3339, arrive)
	if err != nil {
		return req, fmt.Errorf("%w: arriveTime must be RFC 3339", pendla.ErrBadRequest)
	}
	req.TargetArrival = target

	req.Destination, err = destinationParam(q)
	if err != nil {
		return req, err
	}

	if methods := q.Get("includedTravelMethods"); methods != "" {
		for _, part := range strings.Split(methods, ",") {
			mode, ok := pendla.ParseMode(strings.TrimSpace(part))
			if !ok {
				return req, fmt.Errorf("%w: unknown travel method %q", pendla.ErrBadRequest, part)
			}
			req.Modes = append(req.Modes, mode)
		}
	}

	req.HoursBefore = s.deps.DefaultHoursBefore
	req.HoursAfter = s.deps.DefaultHoursAfter
	if req.HoursBefore, err = floatParam(q, "hoursBeforeArrivalTime", req.HoursBefore); err != nil {
		return req, err
	}
	if req.HoursAfter, err = floatParam(q, "hoursAfterArrivalTime", req.HoursAfter); err != nil {
		return req, err
	}
	if req.HoursBefore < 0 || req.HoursAfter < 0 {
		return req, fmt.Errorf("%w: window hours must not be negative", pendla.ErrBadRequest)
	}

	if v := q.Get("overriddenWalkingTime"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes < 0 {
			return req, fmt.Errorf("%w: overriddenWalkingTime must be a non-negative minute count", pendla.ErrBadRequest)
		}
		override := time.Duration(minutes) * time.Minute
		req.WalkOverride = &override
	}

	if req.MinChangeMin, err = intParam(q, "minChangeTime"); err != nil {
		return req, err
	}
	if req.MaxChangeMin, err = intParam(q, "maxChangeTime"); err != nil {
		return req, err
	}

	return req, nil
}

// destinationParam resolves the destination point from either a stop id or
// a coordinate pair. Exactly one form must be present.
func destinationParam(q url.Values) (transit.Point, error) {
	stopID := q.Get("destinationStationId")
	latStr, lonStr := q.Get("destinationLatitude"), q.Get("destinationLongitude")

	switch {
	case stopID != "" && (latStr != "" || lonStr != ""):
		return nil, fmt.Errorf("%w: destination must be a station id or a coordinate, not both", pendla.ErrBadRequest)
	case stopID != "":
		return transit.StopPoint{PointRole: transit.RoleDestination, ID: stopID}, nil
	case latStr != "" && lonStr != "":
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: destinationLatitude must be a number", pendla.ErrBadRequest)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: destinationLongitude must be a number", pendla.ErrBadRequest)
		}
		return transit.CoordPoint{PointRole: transit.RoleDestination, Lat: lat, Lon: lon}, nil
	default:
		return nil, fmt.Errorf("%w: destinationStationId or destinationLatitude+destinationLongitude is required", pendla.ErrBadRequest)
	}
}

func floatParam(q url.Values, key string, def float64) (float64, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", pendla.ErrBadRequest, key)
	}
	return f, nil
}

func intParam(q url.Values, key string) (*int, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: %s must be a non-negative integer", pendla.ErrBadRequest, key)
	}
	return &n, nil
}

func (s *server) handleStops(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, fmt.Errorf("%w: query parameter is required", pendla.ErrBadRequest))
		return
	}

	stationsOnly := r.URL.Query().Get("stationsOnly") != "false"

	maxResults := 10
	if v := r.URL.Query().Get("maxResults"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, fmt.Errorf("%w: maxResults must be a positive integer", pendla.ErrBadRequest))
			return
		}
		maxResults = n
	}

	hits, err := s.deps.Stops.LookupStops(r.Context(), query, stationsOnly, maxResults)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}
