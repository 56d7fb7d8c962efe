// Package handlers provides HTTP handler implementations for the public API.
//
// Every failure leaves the handlers as {"error": "<user text>"}, with the
// texts fixed in errors.go. The correlation ID travels in the X-Request-ID
// header set by the middleware, never in the body.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/trustedloops-edge/internal/http/middleware"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	Error string `json:"error" example:"Message is required"`
}

// fail aborts with the envelope. cause (nil allowed) stays server side: it is
// attached to the gin context for the access log, and 5xx responses also get
// their own error line.
func fail(c *gin.Context, status int, msg string, cause error) {
	if cause != nil {
		_ = c.Error(cause)
	}
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().Err(cause).Int("status", status).Str("reply", msg).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

// Fail lets the router answer with the same envelope (404s, for one).
func Fail(c *gin.Context, status int, msg string) { fail(c, status, msg, nil) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
