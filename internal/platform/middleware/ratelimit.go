package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig tunes the per-caller token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig is generous enough for a clinic front desk hammering
// the agenda views while still capping runaway clients.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

type bucket struct {
	tokens float64
	last   time.Time
}

type limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   float64
}

func newLimiter(cfg RateLimitConfig) *limiter {
	return &limiter{
		buckets: make(map[string]*bucket),
		rate:    cfg.RequestsPerSecond,
		burst:   float64(cfg.BurstSize),
	}
}

// take refills the caller's bucket for the elapsed time, then spends one
// token. It reports whether the request may proceed and, when it may not,
// how many whole seconds until a token is available.
func (l *limiter) take(key string, now time.Time) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, last: now}
		l.buckets[key] = b
	}

	b.tokens = math.Min(l.burst, b.tokens+now.Sub(b.last).Seconds()*l.rate)
	b.last = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}

	if l.rate <= 0 {
		return false, 1
	}
	return false, int((1-b.tokens)/l.rate) + 1
}

// RateLimit throttles requests per authenticated user, falling back to the
// client IP before authentication has run.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	lim := newLimiter(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if userID, ok := c.Get("auth_user_id").(string); ok && userID != "" {
				key = userID
			}

			ok, retryAfter := lim.take(key, time.Now())
			c.Response().Header().Set("X-RateLimit-Limit", limitHeader)
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
