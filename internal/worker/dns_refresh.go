package worker

import (
	"context"
	"time"

	"github.com/rs/dnscache"
)

const dnsRefreshInterval = 5 * time.Minute

// DNSRefresh periodically clears stale entries from the shared DNS cache
// used by the upstream HTTP transports.
type DNSRefresh struct {
	resolver *dnscache.Resolver
}

// NewDNSRefresh creates a DNSRefresh worker for the given resolver.
func NewDNSRefresh(resolver *dnscache.Resolver) *DNSRefresh {
	return &DNSRefresh{resolver: resolver}
}

// Run refreshes the resolver cache on every tick until ctx is cancelled.
func (w *DNSRefresh) Run(ctx context.Context) error {
	ticker := time.NewTicker(dnsRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.resolver.Refresh(true)
		case <-ctx.Done():
			return nil
		}
	}
}
