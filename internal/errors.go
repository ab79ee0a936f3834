package pendla

import "errors"

// Sentinel errors for the pendla domain.
var (
	// ErrBackendUnavailable marks cache backend I/O failures. The
	// freshness cache recovers from it locally by treating the read as
	// a miss; it is never fatal to a caller.
	ErrBackendUnavailable = errors.New("cache backend unavailable")

	// ErrNotFound means an upstream found nothing for the requested id.
	ErrNotFound = errors.New("not found")

	// ErrUpstream marks unexpected upstream fetch failures.
	ErrUpstream = errors.New("upstream error")

	// ErrNoTrips is the planner's distinguished "no result" condition.
	// It ends a trip search successfully when the search has passed the
	// target arrival time, and escalates to a server error otherwise.
	ErrNoTrips = errors.New("no trips found")

	// ErrUnparseable means a planner trip could not be normalized. It is
	// fatal to the whole search request: partial, possibly garbled
	// itinerary lists are never returned.
	ErrUnparseable = errors.New("unparseable trip")

	// ErrSearchExhausted is the search loop safety valve: the iteration
	// budget ran out before the cursor reached the target arrival time.
	ErrSearchExhausted = errors.New("trip search budget exhausted")

	// ErrBadRequest marks invalid caller-supplied parameters.
	ErrBadRequest = errors.New("bad request")
)
