package circuitbreaker

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		ErrorThreshold: 0.5,
		MinSamples:     4,
		WindowSeconds:  60,
		OpenTimeout:    time.Hour,
	}
}

func TestBreakerTripsOnErrorRate(t *testing.T) {
	t.Parallel()

	b := NewBreaker(testConfig())
	for range 4 {
		if !b.Allow() {
			t.Fatal("closed breaker rejected a request")
		}
		b.RecordError(1.0)
	}

	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	if b.Allow() {
		t.Error("open breaker allowed a request before the timeout")
	}
}

func TestBreakerNeedsMinSamples(t *testing.T) {
	t.Parallel()

	b := NewBreaker(testConfig())
	for range 3 {
		b.RecordError(1.0)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed below the sample floor", b.State())
	}
}

func TestBreakerWeightedRateBelowThreshold(t *testing.T) {
	t.Parallel()

	// Eight successes and two rate-limit hits: 1.0 weighted errors over
	// ten samples stays under the 0.5 threshold.
	b := NewBreaker(testConfig())
	for range 8 {
		b.RecordSuccess()
	}
	b.RecordError(0.5)
	b.RecordError(0.5)

	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func tripBreaker(t *testing.T, b *Breaker) {
	t.Helper()
	for range 4 {
		b.RecordError(1.0)
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
}

func TestBreakerHalfOpenSingleProbe(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.OpenTimeout = 0 // open transitions to half-open on the next Allow
	b := NewBreaker(cfg)
	tripBreaker(t, b)

	if !b.Allow() {
		t.Fatal("half-open breaker rejected the probe")
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", b.State())
	}
	if b.Allow() {
		t.Error("second request allowed while a probe is in flight")
	}

	b.RecordSuccess()
	if b.State() != StateClosed {
		t.Fatalf("state after probe success = %v, want closed", b.State())
	}
	if !b.Allow() {
		t.Error("closed breaker rejected a request")
	}
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.OpenTimeout = 0
	b := NewBreaker(cfg)
	tripBreaker(t, b)

	if !b.Allow() {
		t.Fatal("half-open breaker rejected the probe")
	}
	b.RecordError(1.0)
	if b.State() != StateOpen {
		t.Fatalf("state after probe failure = %v, want open", b.State())
	}
}

func TestBreakerClosedAfterResetForgetsHistory(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.OpenTimeout = 0
	b := NewBreaker(cfg)
	tripBreaker(t, b)

	// Close via a successful probe, then confirm the old errors were
	// discarded: three fresh errors stay under the sample floor.
	b.Allow()
	b.RecordSuccess()
	for range 3 {
		b.RecordError(1.0)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed after window reset", b.State())
	}
}

func TestSlidingWindowExpiry(t *testing.T) {
	t.Parallel()

	w := newSlidingWindow(3)
	t0 := time.Unix(1_700_000_000, 0)

	w.Record(1.0, t0)
	if rate, samples := w.ErrorRate(t0); rate != 1.0 || samples != 1 {
		t.Fatalf("rate, samples = %v, %d", rate, samples)
	}

	// Everything recorded at t0 has rolled out of a 3-second window.
	if _, samples := w.ErrorRate(t0.Add(4 * time.Second)); samples != 0 {
		t.Errorf("samples after expiry = %d, want 0", samples)
	}
}

func TestSlidingWindowMixedBuckets(t *testing.T) {
	t.Parallel()

	w := newSlidingWindow(10)
	t0 := time.Unix(1_700_000_000, 0)

	w.Record(1.0, t0)
	w.Record(0, t0.Add(time.Second))
	w.Record(0, t0.Add(2*time.Second))
	w.Record(0, t0.Add(2*time.Second))

	rate, samples := w.ErrorRate(t0.Add(2 * time.Second))
	if samples != 4 {
		t.Fatalf("samples = %d, want 4", samples)
	}
	if rate != 0.25 {
		t.Errorf("rate = %v, want 0.25", rate)
	}
}

func TestSlidingWindowReset(t *testing.T) {
	t.Parallel()

	w := newSlidingWindow(10)
	t0 := time.Unix(1_700_000_000, 0)
	w.Record(1.0, t0)
	w.Reset()

	if _, samples := w.ErrorRate(t0); samples != 0 {
		t.Errorf("samples after reset = %d, want 0", samples)
	}
}

func TestRegistrySharesBreakerPerService(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(testConfig())
	a := reg.GetOrCreate("places")
	b := reg.GetOrCreate("places")
	if a != b {
		t.Error("same service produced two breakers")
	}
	if reg.GetOrCreate("transit") == a {
		t.Error("distinct services share a breaker")
	}

	if got := reg.Get("places"); got != a {
		t.Errorf("Get = %v, want the registered breaker", got)
	}
	if reg.Get("missing") != nil {
		t.Error("Get returned a breaker for an unknown service")
	}
}
