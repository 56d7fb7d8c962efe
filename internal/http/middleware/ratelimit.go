// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the token-bucket limiter in front of /api/chat, where each
// accepted request costs an inference call. Feedback uses the fixed-window
// limiter in window_limit.go instead.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/tbourn/trustedloops-edge/internal/observability"
)

const (
	bucketIdleTTL    = 10 * time.Minute
	bucketSweepEvery = 5000
)

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter keeps one token bucket per client key. It is process-local and
// safe for concurrent use; idle buckets are dropped every few thousand
// lookups.
type RateLimiter struct {
	name  string
	every rate.Limit
	burst int
	key   KeyFunc
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups int
}

// NewRateLimiter refills rps tokens per second up to burst (at least 1).
// name labels rejections in ratelimit_rejections_total.
func NewRateLimiter(name string, rps float64, burst int, key KeyFunc) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	if key == nil {
		key = KeyByClientIP("")
	}
	return &RateLimiter{
		name:    name,
		every:   rate.Limit(rps),
		burst:   burst,
		key:     key,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// bucketFor sweeps idle buckets before the lookup so a stale one is rebuilt
// rather than refreshed.
func (rl *RateLimiter) bucketFor(k string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.lookups++; rl.lookups >= bucketSweepEvery {
		rl.lookups = 0
		for id, b := range rl.buckets {
			if now.Sub(b.seen) >= bucketIdleTTL {
				delete(rl.buckets, id)
			}
		}
	}

	b, ok := rl.buckets[k]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.every, rl.burst)}
		rl.buckets[k] = b
	}
	b.seen = now
	return b.lim
}

// Len reports how many client buckets are live.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Handler takes one token per request. Replays flagged by
// IdempotencyValidator pass free. A rejected request gets 429 with a
// Retry-After computed from the bucket's refill time.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := rl.now()
		res := rl.bucketFor(rl.key(c), now).ReserveN(now, 1)
		if res.OK() {
			wait := res.DelayFrom(now)
			if wait == 0 {
				c.Next()
				return
			}
			res.CancelAt(now)
			// A zero refill rate never frees a token.
			if rl.every > 0 && wait != rate.InfDuration {
				c.Header("Retry-After", strconv.Itoa(retrySeconds(wait)))
			}
		}

		observability.RateLimitRejections.WithLabelValues(rl.name).Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	}
}

func retrySeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
