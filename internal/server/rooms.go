package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	pendla "github.com/pendla/pendla/internal"
)

// maxBatchRooms bounds one batched lookup. Campus displays request a
// handful of rooms at a time; anything larger is a malformed client.
const maxBatchRooms = 50

func (s *server) handleRoom(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	record, err := s.deps.Rooms.Room(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *server) handleRooms(w http.ResponseWriter, r *http.Request) {
	names, err := namesParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rooms := s.deps.Rooms.Rooms(r.Context(), names)
	out := make(map[string]json.RawMessage, len(rooms))
	for name, record := range rooms {
		out[name] = record
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleBuildings(w http.ResponseWriter, r *http.Request) {
	names, err := namesParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.deps.Rooms.Buildings(r.Context(), names))
}

// namesParam parses the comma-separated names query parameter.
func namesParam(r *http.Request) ([]string, error) {
	raw := r.URL.Query().Get("names")
	if raw == "" {
		return nil, fmt.Errorf("%w: names parameter is required", pendla.ErrBadRequest)
	}

	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: names parameter is empty", pendla.ErrBadRequest)
	}
	if len(names) > maxBatchRooms {
		return nil, fmt.Errorf("%w: at most %d names per request", pendla.ErrBadRequest, maxBatchRooms)
	}
	return names, nil
}
