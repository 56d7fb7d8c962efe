// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file feeds the HTTP collectors owned by the observability package.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/trustedloops-edge/internal/observability"
)

const unmatchedPath = "unmatched"

// Metrics instruments every request. Labels stay bounded: the path is the
// registered route or "unmatched", and non-standard verbs (the API routes
// accept any method to answer 405 themselves) collapse to "OTHER".
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		observability.HTTPInflight.Inc()
		defer observability.HTTPInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedPath
		}
		observability.ObserveHTTP(
			metricMethod(c.Request.Method),
			path,
			c.Writer.Status(),
			time.Since(start).Seconds(),
			c.Writer.Size(),
		)
	}
}

func metricMethod(m string) string {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return m
	default:
		return "OTHER"
	}
}
