package circuitbreaker

import (
	"sync"
)

// Registry manages per-service Breaker instances.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	config   Config
}

// NewRegistry creates a new circuit breaker registry with the given config.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		config:   cfg,
	}
}

// Get returns the breaker for the given service, or nil if none exists.
func (r *Registry) Get(service string) *Breaker {
	r.mu.RLock()
	b := r.breakers[service]
	r.mu.RUnlock()
	return b
}

// GetOrCreate returns the breaker for service, creating one if needed.
// Uses double-check locking to minimize write-lock contention.
func (r *Registry) GetOrCreate(service string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[service]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Double-check after acquiring write lock.
	if b, ok := r.breakers[service]; ok {
		return b
	}
	b = NewBreaker(r.config)
	r.breakers[service] = b
	return b
}
