package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum delay between outbound provider calls so a
// burst of searches stays inside the per-minute quota.
type RateLimiter struct {
	mu       sync.Mutex
	minDelay time.Duration
	lastCall time.Time
}

func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &RateLimiter{
		minDelay: time.Minute / time.Duration(requestsPerMinute),
	}
}

// Wait blocks until the next call is allowed or the context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	wait := rl.minDelay - now.Sub(rl.lastCall)
	if wait < 0 {
		wait = 0
	}
	rl.lastCall = now.Add(wait)
	rl.mu.Unlock()

	if wait == 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
