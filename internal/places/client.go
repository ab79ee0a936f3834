// Package places implements the room-directory client.
package places

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"

	pendla "github.com/pendla/pendla/internal"
	"github.com/pendla/pendla/internal/upstream"
)

const serviceName = "places"

// Client looks up rooms in the campus room directory. Responses are returned
// as raw JSON so the cache stores exactly what the upstream said.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	http      *http.Client
}

// New creates a room-directory Client. The provided http.Client should have
// its timeout and transport configured by the caller.
func New(baseURL, apiKey, userAgent string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		userAgent: userAgent,
		http:      client,
	}
}

// FindRoom fetches the directory record for a room by name. It returns
// pendla.ErrNotFound when the directory has no such room. Transient network
// failures and 5xx responses are retried a bounded number of times.
func (c *Client) FindRoom(ctx context.Context, name string) ([]byte, error) {
	// Stray whitespace in room names is a known cause of failed lookups.
	name = strings.TrimSpace(name)

	var body []byte
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		body, err = c.fetchRoom(ctx, name)
		return err
	})
	if err != nil {
		return nil, err
	}

	// The directory answers 200 with an empty object for unknown rooms.
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() || len(doc.Map()) == 0 {
		return nil, fmt.Errorf("room %q: %w", name, pendla.ErrNotFound)
	}
	return body, nil
}

func (c *Client) fetchRoom(ctx context.Context, name string) ([]byte, error) {
	reqURL := c.baseURL + "/room/name/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("places: create request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("places: do request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := upstream.ParseAPIError(serviceName, resp)
		if resp.StatusCode >= 500 {
			return nil, retry.RetryableError(apiErr)
		}
		return nil, apiErr
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("places: read response: %w", err))
	}
	return body, nil
}

// BuildingsFromRooms groups room names by the building each room record
// reports. Rooms whose record has no building are skipped.
func BuildingsFromRooms(rooms map[string][]byte) map[string][]string {
	buildings := make(map[string][]string)
	for name, data := range rooms {
		if data == nil {
			continue
		}
		building := gjson.GetBytes(data, "information.location.buildingName").String()
		if building == "" {
			continue
		}
		buildings[building] = append(buildings[building], name)
	}
	return buildings
}
