package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key (broker endpoint or API client).
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   float64
	burst int
}

func New(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{m: make(map[string]*rate.Limiter), rps: rps, burst: burst}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.m[key]
	if !ok {
		limit := rate.Limit(l.rps)
		if l.rps <= 0 {
			limit = rate.Inf
		}
		lim = rate.NewLimiter(limit, l.burst)
		l.m[key] = lim
	}
	return lim
}

// Allow returns true if one token can be consumed for key now.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Wait blocks until a token for key is available or ctx ends.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.get(key).Wait(ctx)
}
