// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides correlation IDs, the request-scoped logger and panic
// recovery:
//
//   - RequestID() gives every request a correlation ID, reusing a well-formed
//     X-Request-ID or the Cloudflare CF-Ray of the edge hop.
//   - ScopedLogger() attaches a zerolog.Logger carrying the correlation ID and
//     route to both the Gin context and the request context, so handlers use
//     LoggerFrom(c) and services and adapters use zerolog.Ctx(ctx).
//   - Recovery() converts panics into JSON 500 responses.
//
// Access lines are written by RedactingLogger, not here.
//
// Order: RequestID → RedactingLogger → ScopedLogger → Recovery.
package middleware

import (
	"net/http"
	"regexp"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	cfRayHeader     = "CF-Ray"
	loggerKey       = "logger"
)

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:\-]{1,128}$`)

// RequestID attaches a correlation identifier per request. An inbound
// X-Request-ID is reused when it is a short token, then CF-Ray, otherwise a
// new UUIDv4 is generated. The ID is echoed in the X-Request-ID response
// header and stored under the "requestID" Gin key.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := pickRequestID(c.GetHeader(requestIDHeader), c.GetHeader(cfRayHeader))
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

func pickRequestID(candidates ...string) string {
	for _, v := range candidates {
		if requestIDPattern.MatchString(v) {
			return v
		}
	}
	return uuid.NewString()
}

// RequestIDFrom returns the correlation ID set by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// ScopedLogger builds the per-request logger. It emits nothing itself.
func ScopedLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		l := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("route", route).
			Logger()

		c.Set(loggerKey, &l)
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
		c.Next()
	}
}

// Recovery intercepts panics, logs the stack with the request logger and
// answers {"error":"internal server error"} if nothing was written yet.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, RequestIDFrom(c))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger. Without ScopedLogger it falls
// back to a logger on the request context, then to the global logger, so
// callers never need a nil check.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	if c.Request != nil {
		if lg := zerolog.Ctx(c.Request.Context()); lg != zerolog.DefaultContextLogger && lg.GetLevel() != zerolog.Disabled {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}
