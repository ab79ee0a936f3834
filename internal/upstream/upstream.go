// Package upstream contains shared plumbing for upstream service clients:
// a DNS-cached transport and the error type for non-2xx responses.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"

	pendla "github.com/pendla/pendla/internal"
)

// NewTransport returns a tuned *http.Transport with connection pooling and
// optional DNS caching.
func NewTransport(resolver *dnscache.Resolver) *http.Transport {
	t := &http.Transport{
		MaxIdleConnsPerHost: 100,
		MaxConnsPerHost:     200,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if resolver != nil {
		t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(ips[0], port))
		}
	}
	return t
}

// NewClient returns an *http.Client with a bounded overall timeout so a
// stalled upstream can never hang a request indefinitely.
func NewClient(timeout time.Duration, resolver *dnscache.Resolver) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewTransport(resolver),
	}
}

// APIError represents a non-2xx response from an upstream service.
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

// Error returns a formatted error string including service, status, and body.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Service, e.StatusCode, e.Body)
}

// Unwrap ties every APIError into the ErrUpstream taxonomy.
func (e *APIError) Unwrap() error { return pendla.ErrUpstream }

// HTTPStatus returns the upstream status code for error classification.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// ParseAPIError reads up to 4KB from the response body and returns an APIError.
func ParseAPIError(service string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{Service: service, StatusCode: resp.StatusCode, Body: string(body)}
}
