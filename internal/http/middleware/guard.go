// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the per-endpoint CORS and method guard. Routes are
// registered with Any so that the guard, not Gin's router, decides what an
// unsupported method gets back. Any covers only the standard methods, so
// GuardedRoutes also runs the guard from NoRoute for extension methods.
package middleware

import (
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// GuardOptions configures Guard.
type GuardOptions struct {
	// Methods the endpoint serves. OPTIONS is always answered.
	Methods []string
	// AllowedOrigins is the CORS allowlist. Empty or containing "*" allows all.
	AllowedOrigins []string
	// AllowHeaders defaults to Content-Type and Idempotency-Key.
	AllowHeaders []string
}

// Guard answers preflight requests with 204 and rejects methods outside
// opt.Methods with 405 before the handler runs. Browser CORS requests are
// handled by gin-contrib/cors; requests without an Origin still receive
// Access-Control-Allow-Origin: * when no allowlist is configured.
func Guard(opt GuardOptions) gin.HandlerFunc {
	allowHeaders := opt.AllowHeaders
	if len(allowHeaders) == 0 {
		allowHeaders = []string{"Content-Type", HeaderIdempotencyKey}
	}

	allowed := make(map[string]struct{}, len(opt.Methods)+1)
	methods := make([]string, 0, len(opt.Methods)+1)
	for _, m := range append(append([]string{}, opt.Methods...), http.MethodOptions) {
		m = strings.ToUpper(strings.TrimSpace(m))
		if _, dup := allowed[m]; m == "" || dup {
			continue
		}
		allowed[m] = struct{}{}
		methods = append(methods, m)
	}
	allowMethods := strings.Join(methods, ", ")

	allowAll := len(opt.AllowedOrigins) == 0
	for _, o := range opt.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
	}

	cfg := cors.Config{
		AllowMethods:  methods,
		AllowHeaders:  allowHeaders,
		ExposeHeaders: []string{requestIDHeader, cacheHeader},
		MaxAge:        12 * time.Hour,
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = opt.AllowedOrigins
	}
	browserCORS := cors.New(cfg)

	return func(c *gin.Context) {
		if allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}
		if c.GetHeader("Origin") != "" {
			browserCORS(c)
			if c.IsAborted() {
				return
			}
		}

		method := c.Request.Method
		if method == http.MethodOptions {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Allow-Headers", strings.Join(allowHeaders, ", "))
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		if _, ok := allowed[method]; !ok {
			c.Header("Allow", allowMethods)
			c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
			return
		}
		c.Next()
	}
}

// GuardedRoutes mounts guarded endpoints and remembers each path's guard.
// Requests with a method Gin has no tree for (PROPFIND, PURGE) never match
// a route; Fallback hands them back to the guard for the 405.
type GuardedRoutes struct {
	guards map[string]gin.HandlerFunc
}

// Any registers chain behind a Guard built from opt at rg's base path + p.
func (g *GuardedRoutes) Any(rg *gin.RouterGroup, p string, opt GuardOptions, chain ...gin.HandlerFunc) {
	if g.guards == nil {
		g.guards = make(map[string]gin.HandlerFunc)
	}
	guard := Guard(opt)
	g.guards[path.Join(rg.BasePath(), p)] = guard
	rg.Any(p, append([]gin.HandlerFunc{guard}, chain...)...)
}

// Fallback wraps a NoRoute handler. On a guarded path the guard answers;
// everything else, and anything the guard lets through, goes to next.
func (g *GuardedRoutes) Fallback(next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if guard, ok := g.guards[c.Request.URL.Path]; ok {
			guard(c)
			if c.IsAborted() {
				return
			}
		}
		next(c)
	}
}
