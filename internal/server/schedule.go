package server

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	pendla "github.com/pendla/pendla/internal"
)

func (s *server) handleScheduleEvents(w http.ResponseWriter, r *http.Request) {
	feedURL, err := feedURLParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	from, err := timeParam(q, "from", time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := timeParam(q, "to", from.Add(24*time.Hour))
	if err != nil {
		writeError(w, err)
		return
	}
	if to.Before(from) {
		writeError(w, fmt.Errorf("%w: to must not be before from", pendla.ErrBadRequest))
		return
	}

	events, err := s.deps.Schedules.Events(r.Context(), feedURL, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *server) handleScheduleValidate(w http.ResponseWriter, r *http.Request) {
	feedURL, err := feedURLParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.deps.Schedules.Validate(r.Context(), feedURL); err != nil {
		writeJSON(w, http.StatusOK, map[string]bool{"valid": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// feedURLParam validates the url query parameter as an absolute http(s) URL.
func feedURLParam(r *http.Request) (string, error) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		return "", fmt.Errorf("%w: url parameter is required", pendla.ErrBadRequest)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: url must be an absolute http or https URL", pendla.ErrBadRequest)
	}
	return raw, nil
}

func timeParam(q url.Values, key string, def time.Time) (time.Time, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC 3339", pendla.ErrBadRequest, key)
	}
	return t, nil
}
