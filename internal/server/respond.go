package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	pendla "github.com/pendla/pendla/internal"
)

type apiError struct {
	Error string `json:"error"`
}

func errorResponse(msg string) apiError {
	return apiError{Error: msg}
}

// errorStatus maps domain errors to HTTP status codes. Upstream failures
// and unusable upstream answers surface as 500s with sanitized messages.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, pendla.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, pendla.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage returns the sanitized client-facing message for an error.
// Upstream bodies and internal detail never leak to the client.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, pendla.ErrBadRequest):
		return err.Error()
	case errors.Is(err, pendla.ErrNotFound):
		return "not found"
	case errors.Is(err, pendla.ErrUnparseable):
		return "unparseable trip"
	case errors.Is(err, pendla.ErrNoTrips), errors.Is(err, pendla.ErrSearchExhausted):
		return "trip search failed"
	default:
		return "internal server error"
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errorStatus(err), errorResponse(errorMessage(err)))
}

// jsonCT is a pre-allocated header value slice. Direct map assignment
// (w.Header()["Content-Type"] = jsonCT) avoids the []string{v} alloc
// that Header.Set creates on every call.
var jsonCT = []string{"application/json"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
