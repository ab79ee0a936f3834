package upstream

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/dnscache"

	pendla "github.com/pendla/pendla/internal"
	"github.com/pendla/pendla/internal/circuitbreaker"
	"github.com/pendla/pendla/internal/telemetry"
)

// breakerTransport guards a RoundTripper with a circuit breaker. Rejections
// happen before any network activity, so a tripped service fails in
// nanoseconds instead of a full timeout.
type breakerTransport struct {
	service string
	breaker *circuitbreaker.Breaker
	metrics *telemetry.Metrics // nil = no instrumentation
	base    http.RoundTripper
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.breaker.Allow() {
		if t.metrics != nil {
			t.metrics.UpstreamErrors.WithLabelValues(t.service).Inc()
		}
		return nil, fmt.Errorf("%s: circuit open: %w", t.service, pendla.ErrUpstream)
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if t.metrics != nil {
		t.metrics.UpstreamDuration.WithLabelValues(t.service).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		t.breaker.RecordError(circuitbreaker.ClassifyError(err))
		if t.metrics != nil {
			t.metrics.UpstreamErrors.WithLabelValues(t.service).Inc()
		}
		return nil, err
	}

	if weight := circuitbreaker.ClassifyStatus(resp.StatusCode); weight > 0 {
		t.breaker.RecordError(weight)
		if t.metrics != nil {
			t.metrics.UpstreamErrors.WithLabelValues(t.service).Inc()
		}
	} else {
		t.breaker.RecordSuccess()
	}
	return resp, nil
}

// NewGuardedClient is NewClient with a circuit breaker in front of the
// transport. All requests through the client count toward the breaker's
// sliding error window and, when metrics is non-nil, toward the upstream
// duration and error collectors.
func NewGuardedClient(timeout time.Duration, resolver *dnscache.Resolver, service string, breaker *circuitbreaker.Breaker, metrics *telemetry.Metrics) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &breakerTransport{
			service: service,
			breaker: breaker,
			metrics: metrics,
			base:    NewTransport(resolver),
		},
	}
}
