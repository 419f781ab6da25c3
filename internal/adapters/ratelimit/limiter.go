package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"crisiswatch/pkg/errors"
)

// Limiter paces calls to one upstream source
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// NewLimiter creates a new rate limiter
// requestsPerMinute: maximum number of requests allowed per minute
func NewLimiter(name string, requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1), name: name}
	}

	// Convert to requests per second
	rps := float64(requestsPerMinute) / 60.0

	// Allow burst of 10% of per-minute limit
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    name,
	}
}

// Name returns the limiter name
func (l *Limiter) Name() string {
	return l.name
}

// Wait blocks until the rate limiter allows the request
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(errors.ErrRateLimitExceeded, "rate limiter %s: %v", l.name, err)
	}
	return nil
}

// Allow checks if a request is allowed without blocking
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Registry hands out one limiter per source name, created on first use
type Registry struct {
	mu                sync.Mutex
	limiters          map[string]*Limiter
	requestsPerMinute int
	overrides         map[string]int
}

// NewRegistry creates a registry with a default per-minute budget
func NewRegistry(requestsPerMinute int) *Registry {
	return &Registry{
		limiters:          make(map[string]*Limiter),
		requestsPerMinute: requestsPerMinute,
		overrides:         make(map[string]int),
	}
}

// SetLimit overrides the budget for one source
func (r *Registry) SetLimit(name string, requestsPerMinute int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[name] = requestsPerMinute
	delete(r.limiters, name)
}

// For returns the limiter for a source
func (r *Registry) For(name string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[name]; ok {
		return l
	}

	rpm := r.requestsPerMinute
	if override, ok := r.overrides[name]; ok {
		rpm = override
	}
	l := NewLimiter(name, rpm)
	r.limiters[name] = l
	return l
}

// Wait waits on the limiter of a source
func (r *Registry) Wait(ctx context.Context, name string) error {
	return r.For(name).Wait(ctx)
}
