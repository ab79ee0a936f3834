// Package transit implements the journey-planner client.
//
// The planner only answers "give me N trips around time T", so callers that
// need a whole time window covered drive this client iteratively; see the
// trip package.
package transit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	pendla "github.com/pendla/pendla/internal"
	"github.com/pendla/pendla/internal/upstream"
)

const serviceName = "transit"

// Client talks to the journey-planner and stop-lookup APIs.
type Client struct {
	baseURL    string
	plannerKey string
	lookupKey  string
	userAgent  string
	http       *http.Client
}

// New creates a transit Client. The provided http.Client should have its
// timeout and transport configured by the caller.
func New(baseURL, plannerKey, lookupKey, userAgent string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		plannerKey: plannerKey,
		lookupKey:  lookupKey,
		userAgent:  userAgent,
		http:       client,
	}
}

// PlanRequest describes one planner query.
type PlanRequest struct {
	Points          []Point
	Date            string // "2006-01-02"; empty means the planner's "now"
	Time            string // "15:04"; empty means the planner's "now"
	CountBefore     int    // trip alternatives before the anchor time
	CountAfter      int    // trip alternatives after the anchor time
	SearchByArrival bool   // anchor is an arrival time, not a departure time
	Modes           []pendla.TravelMode // nil = all products
	IncludeStops    bool
	MinChangeMin    *int
	MaxChangeMin    *int
}

// PlanTrip issues one planner query and returns the raw trip suggestions.
// The planner's distinguished "no result" answer maps to pendla.ErrNoTrips;
// every other planner-reported error becomes an upstream.APIError.
func (c *Client) PlanTrip(ctx context.Context, req PlanRequest) ([]RawTrip, error) {
	params := url.Values{}
	params.Set("numB", strconv.Itoa(req.CountBefore))
	params.Set("numF", strconv.Itoa(req.CountAfter))
	params.Set("searchForArrival", boolParam(req.SearchByArrival))
	if req.Date != "" {
		params.Set("Date", req.Date)
	}
	if req.Time != "" {
		params.Set("Time", req.Time)
	}
	if req.IncludeStops {
		params.Set("Passlist", "1")
	}
	if req.Modes != nil {
		params.Set("Products", strconv.Itoa(ProductMask(req.Modes)))
	}
	if req.MinChangeMin != nil {
		params.Set("minChangeTime", strconv.Itoa(*req.MinChangeMin))
	}
	if req.MaxChangeMin != nil {
		params.Set("maxChangeTime", strconv.Itoa(*req.MaxChangeMin))
	}

	var vias, avoids []string
	for _, p := range req.Points {
		switch p.Role() {
		case RoleOrigin, RoleDestination:
			pointParams, err := p.Params()
			if err != nil {
				return nil, fmt.Errorf("transit: %w", err)
			}
			for k, v := range pointParams {
				params.Set(k, v)
			}
		case RoleVia:
			stop, ok := p.(StopPoint)
			if !ok {
				return nil, fmt.Errorf("transit: via points must be stops, got %T", p)
			}
			via, err := stop.ViaString(0, "", "")
			if err != nil {
				return nil, fmt.Errorf("transit: %w", err)
			}
			vias = append(vias, via)
		case RoleAvoid:
			stop, ok := p.(StopPoint)
			if !ok {
				return nil, fmt.Errorf("transit: avoid points must be stops, got %T", p)
			}
			avoid, err := stop.AvoidString(false, false)
			if err != nil {
				return nil, fmt.Errorf("transit: %w", err)
			}
			avoids = append(avoids, avoid)
		}
	}
	if len(vias) > 0 {
		params.Set("Via", strings.Join(vias, ";"))
	}
	if len(avoids) > 0 {
		params.Set("Avoid", strings.Join(avoids, ";"))
	}

	body, err := c.send(ctx, "/trips.json", c.plannerKey, params)
	if err != nil {
		return nil, err
	}

	// The planner reports errors in the body, not the status code.
	errCode := gjson.GetBytes(body, "errorCode")
	if errCode.Exists() || gjson.GetBytes(body, "errorText").Exists() {
		if errCode.String() == "SVC_NO_RESULT" {
			return nil, pendla.ErrNoTrips
		}
		return nil, &upstream.APIError{
			Service:    serviceName,
			StatusCode: http.StatusOK,
			Body: fmt.Sprintf("planner error %s: %s",
				errCode.String(), gjson.GetBytes(body, "errorText").String()),
		}
	}
	return parseTrips(body), nil
}

// StopHit is one result of a stop lookup.
type StopHit struct {
	Name     string  `json:"name"`
	ID       string  `json:"id"`
	Lat, Lon float64 `json:"-"`
}

// LookupStops searches the stop directory by free-text query.
func (c *Client) LookupStops(ctx context.Context, query string, stationsOnly bool, maxResults int) ([]StopHit, error) {
	params := url.Values{}
	params.Set("searchstring", query)
	if stationsOnly {
		params.Set("stationsonly", "1")
	}
	if maxResults > 0 {
		params.Set("maxresults", strconv.Itoa(maxResults))
	}

	body, err := c.send(ctx, "/typeahead.json", c.lookupKey, params)
	if err != nil {
		return nil, err
	}

	// A 200 can still carry an error; the lookup service has its own
	// status field.
	if code := gjson.GetBytes(body, "StatusCode"); code.Exists() && code.Int() != 0 {
		return nil, &upstream.APIError{
			Service:    serviceName,
			StatusCode: http.StatusOK,
			Body:       fmt.Sprintf("lookup status %d: %s", code.Int(), gjson.GetBytes(body, "Message").String()),
		}
	}

	var hits []StopHit
	for _, r := range gjson.GetBytes(body, "ResponseData").Array() {
		hits = append(hits, StopHit{
			Name: r.Get("Name").String(),
			ID:   r.Get("SiteId").String(),
			Lat:  r.Get("Y").Float(),
			Lon:  r.Get("X").Float(),
		})
	}
	return hits, nil
}

func (c *Client) send(ctx context.Context, path, apiKey string, params url.Values) ([]byte, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("transit: no API key configured for %s", path)
	}
	params.Set("key", apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("transit: create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transit: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, upstream.ParseAPIError(serviceName, resp)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("transit: read response: %w", err)
	}
	return body, nil
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
