// internal/middleware/ratelimit.go
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skyhop/flightcache/pkg/utils"
)

// RateLimiter throttles clients per IP across two fixed windows: a per-minute
// quota for burst control and a per-hour quota matching the provider plan.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	perMinute int
	perHour   int
}

// visitor tracks one client's consumption in both enforcement windows.
type visitor struct {
	minuteStart time.Time
	minuteCount int
	hourStart   time.Time
	hourCount   int
	lastSeen    time.Time
}

// NewRateLimiter builds a limiter from the configured quotas. A non-positive
// per-minute quota falls back to 60; a non-positive per-hour quota disables
// the hourly window.
func NewRateLimiter(perMinute, perHour int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	rl := &RateLimiter{
		visitors:  make(map[string]*visitor),
		perMinute: perMinute,
		perHour:   perHour,
	}
	go rl.evictIdle()
	return rl
}

// allow consumes one request for ip, rolling each window forward when it has
// elapsed. Both quotas must have headroom.
func (rl *RateLimiter) allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{minuteStart: now, hourStart: now}
		rl.visitors[ip] = v
	}
	if now.Sub(v.minuteStart) >= time.Minute {
		v.minuteStart = now
		v.minuteCount = 0
	}
	if now.Sub(v.hourStart) >= time.Hour {
		v.hourStart = now
		v.hourCount = 0
	}

	if v.minuteCount >= rl.perMinute {
		return false
	}
	if rl.perHour > 0 && v.hourCount >= rl.perHour {
		return false
	}

	v.minuteCount++
	v.hourCount++
	v.lastSeen = now
	return true
}

// RateLimit rejects requests over quota with 429.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP(), time.Now()) {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "Rate limit exceeded", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// evictIdle drops visitors whose hourly window can no longer constrain
// anything.
func (rl *RateLimiter) evictIdle() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if now.Sub(v.lastSeen) > time.Hour {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// SecurityHeaders sets the standard hardening headers on every response.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	}
}

// RequestID tags each request with an ID, honoring one supplied by the
// caller.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = utils.NewRequestID()
		}

		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}
