// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file adapts the fixed-window limiter from internal/ratelimit to Gin and
// provides the client identity functions shared by both limiters.
package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/trustedloops-edge/internal/observability"
	"github.com/tbourn/trustedloops-edge/internal/ratelimit"
)

// KeyFunc selects the identity used to key a rate-limit record.
type KeyFunc func(*gin.Context) string

// unknownClient is the shared key for requests with no usable address.
const unknownClient = "unknown"

// KeyByClientIP returns a KeyFunc that prefers the value of header (the
// address the CDN saw, e.g. CF-Connecting-IP), then gin's ClientIP, then
// "unknown". All clients without an address share one record.
func KeyByClientIP(header string) KeyFunc {
	return func(c *gin.Context) string {
		if header != "" {
			if v := strings.TrimSpace(c.GetHeader(header)); v != "" {
				return v
			}
		}
		if ip := c.ClientIP(); ip != "" {
			return ip
		}
		return unknownClient
	}
}

// WindowLimitOptions configures WindowLimit.
type WindowLimitOptions struct {
	// Name labels rejections in metrics.
	Name string
	// Limiter holds the per-client windows. Required.
	Limiter *ratelimit.Limiter
	// Key derives the client identity. Defaults to KeyByClientIP("").
	Key KeyFunc
	// Message is the user-facing 429 text.
	Message string
}

// WindowLimit rejects a request with 429 once its client has used up the
// current window. Idempotent replays flagged by IdempotencyValidator are not
// counted.
func WindowLimit(opt WindowLimitOptions) gin.HandlerFunc {
	if opt.Key == nil {
		opt.Key = KeyByClientIP("")
	}
	if opt.Message == "" {
		opt.Message = "Too many submissions. Please try again later."
	}
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		err := opt.Limiter.Allow(opt.Key(c))
		if err == nil {
			c.Next()
			return
		}

		observability.RateLimitRejections.WithLabelValues(opt.Name).Inc()
		var ex *ratelimit.ExceededError
		if errors.As(err, &ex) && ex.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(ex.RetryAfter.Seconds()))))
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": opt.Message})
	}
}
