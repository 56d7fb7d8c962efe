// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the gateway's access log. Feedback
// submissions carry names and emails and the CDN forwards client addresses
// in headers, so every logged string passes through a redactor first.
// Bodies are never logged.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders lists extra header names whose values are replaced with
// "[REDACTED]". Matching is case-insensitive and merged with the built-in set
// (Authorization, Cookie, Set-Cookie, CF-Connecting-IP, X-Forwarded-For,
// X-Real-IP, True-Client-IP).
type RedactOptions struct {
	MaskHeaders []string
}

var defaultMaskedHeaders = []string{
	"authorization", "cookie", "set-cookie",
	"cf-connecting-ip", "x-forwarded-for", "x-real-ip", "true-client-ip",
}

// rule replaces one class of identifier. Rules run in slice order.
type rule struct {
	re   *regexp.Regexp
	mask string
}

// UUIDs and IPv4 addresses go before phone numbers, whose pattern would
// otherwise eat their digit runs.
var redactRules = []rule{
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), "[REDACTED:ip]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}

type redactor struct {
	masked map[string]struct{}
}

func newRedactor(extra []string) redactor {
	r := redactor{masked: make(map[string]struct{}, len(defaultMaskedHeaders)+len(extra))}
	for _, h := range append(append([]string{}, defaultMaskedHeaders...), extra...) {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.masked[h] = struct{}{}
		}
	}
	return r
}

func (r redactor) text(s string) string {
	for _, ru := range redactRules {
		if s == "" {
			break
		}
		s = ru.re.ReplaceAllString(s, ru.mask)
	}
	return s
}

func (r redactor) header(name string, values []string) string {
	if _, ok := r.masked[strings.ToLower(name)]; ok {
		return "[REDACTED]"
	}
	return r.text(strings.Join(values, ", "))
}

// headers returns a zerolog dictionary of scrubbed request headers.
func (r redactor) headers(c *gin.Context) *zerolog.Event {
	d := zerolog.Dict()
	for k, vv := range c.Request.Header {
		d.Str(k, r.header(k, vv))
	}
	return d
}

// RedactingLogger writes one access line per request after the handler
// chain finishes: level info, warn for 4xx and error for 5xx. Query strings
// and header values are scrubbed of emails, phone numbers, UUIDs and IPv4
// addresses; masked headers are dropped to "[REDACTED]".
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	rd := newRedactor(opts.MaskHeaders)

	return func(c *gin.Context) {
		start := time.Now()
		headers := rd.headers(c)
		query := rd.text(c.Request.URL.RawQuery)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = rd.text(c.Request.URL.Path)
		}
		status := c.Writer.Status()

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", rd.text(c.Errors.String()))
		}

		ev.
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", route).
			Str("query", query).
			Int("status", status).
			Int64("bytes_in", c.Request.ContentLength).
			Int("bytes_out", c.Writer.Size()).
			Str("cache", c.Writer.Header().Get(cacheHeader)).
			Dur("latency", time.Since(start)).
			Dict("headers", headers).
			Msg("http_request")
	}
}
