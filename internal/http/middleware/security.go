// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders for the gateway's JSON responses. The
// header set is computed once per route chain; per request only HSTS (which
// depends on the scheme) and the expose list vary.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders.
//
// HSTS is sent only for HTTPS requests (TLS or X-Forwarded-Proto: https) and
// only when EnableHSTS is set. NoStore is for the write endpoints; the feed
// route sets its own Cache-Control for edge caching and must not use it.
type SecurityOptions struct {
	EnableHSTS   bool
	HSTSMaxAge   time.Duration // defaults to 180 days
	NoStore      bool          // Cache-Control: no-store plus Pragma/Expires
	EnablePolicy bool          // Permissions-Policy and X-Permitted-Cross-Domain-Policies
}

// staticHeaders returns the request-independent part of the header set.
func (o SecurityOptions) staticHeaders() http.Header {
	h := http.Header{}
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "no-referrer")
	if o.EnablePolicy {
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
		h.Set("X-Permitted-Cross-Domain-Policies", "none")
	}
	if o.NoStore {
		h.Set("Cache-Control", "no-store")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
	}
	return h
}

func (o SecurityOptions) hstsValue() string {
	age := o.HSTSMaxAge
	if age <= 0 {
		age = 180 * 24 * time.Hour
	}
	return "max-age=" + strconv.Itoa(int(age.Seconds())) + "; includeSubDomains; preload"
}

// SecurityHeaders sets the configured headers before the handler runs. When
// RequestID has assigned an ID, X-Request-ID and X-Cache are added to
// Access-Control-Expose-Headers so the site's scripts can read them.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	static := opt.staticHeaders()
	hsts := opt.hstsValue()

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, vs := range static {
			h[k] = append([]string(nil), vs...)
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if h.Get(requestIDHeader) != "" {
			exposeHeader(h, requestIDHeader)
			exposeHeader(h, cacheHeader)
		}
		c.Next()
	}
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// exposeHeader appends name to Access-Control-Expose-Headers once.
func exposeHeader(h http.Header, name string) {
	const hdr = "Access-Control-Expose-Headers"
	cur := h.Get(hdr)
	if cur == "" {
		h.Set(hdr, name)
		return
	}
	for _, p := range strings.Split(cur, ",") {
		if strings.EqualFold(strings.TrimSpace(p), name) {
			return
		}
	}
	h.Set(hdr, cur+", "+name)
}
