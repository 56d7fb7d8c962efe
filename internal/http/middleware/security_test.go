package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func securityRouter(opt SecurityOptions, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(pre...)
	r.Use(SecurityHeaders(opt))
	r.GET("/api/feed", func(c *gin.Context) { c.String(http.StatusOK, "{}") })
	return r
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	w := httptest.NewRecorder()
	securityRouter(SecurityOptions{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/feed", nil))

	h := w.Header()
	if h.Get("X-Content-Type-Options") != "nosniff" || h.Get("X-Frame-Options") != "DENY" || h.Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("baseline headers missing: %v", h)
	}
	for _, k := range []string{"Permissions-Policy", "Cache-Control", "Pragma", "Strict-Transport-Security", "Access-Control-Expose-Headers"} {
		if h.Get(k) != "" {
			t.Fatalf("unexpected %s: %q", k, h.Get(k))
		}
	}
}

func TestSecurityHeaders_PolicyAndNoStore(t *testing.T) {
	w := httptest.NewRecorder()
	securityRouter(SecurityOptions{EnablePolicy: true, NoStore: true}).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/feed", nil))

	h := w.Header()
	if h.Get("Permissions-Policy") == "" || h.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("policy headers missing: %v", h)
	}
	if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" || h.Get("Expires") != "0" {
		t.Fatalf("no-store headers missing: %v", h)
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	opt := SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour}

	cases := []struct {
		name string
		req  func() *http.Request
		want string
	}{
		{"plain http", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/feed", nil)
		}, ""},
		{"tls", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
			r.TLS = &tls.ConnectionState{}
			return r
		}, "max-age=3600; includeSubDomains; preload"},
		{"edge terminated", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
			r.Header.Set("X-Forwarded-Proto", "HTTPS")
			return r
		}, "max-age=3600; includeSubDomains; preload"},
	}
	r := securityRouter(opt)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, tc.req())
			if got := w.Header().Get("Strict-Transport-Security"); got != tc.want {
				t.Fatalf("HSTS=%q; want %q", got, tc.want)
			}
		})
	}
}

func TestSecurityHeaders_DefaultHSTSAge(t *testing.T) {
	if got := (SecurityOptions{}).hstsValue(); got != "max-age=15552000; includeSubDomains; preload" {
		t.Fatalf("default HSTS = %q", got)
	}
}

func TestSecurityHeaders_ExposesRequestIDAndCache(t *testing.T) {
	w := httptest.NewRecorder()
	securityRouter(SecurityOptions{}, RequestID()).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/feed", nil))

	if got := w.Header().Get("Access-Control-Expose-Headers"); got != "X-Request-ID, X-Cache" {
		t.Fatalf("expose=%q", got)
	}
}

func TestSecurityHeaders_StaticSetIsNotShared(t *testing.T) {
	r := securityRouter(SecurityOptions{NoStore: true})
	r.GET("/mutate", func(c *gin.Context) {
		c.Writer.Header().Add("Cache-Control", "private")
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/mutate", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/feed", nil))
	if vs := w.Header().Values("Cache-Control"); len(vs) != 1 || vs[0] != "no-store" {
		t.Fatalf("Cache-Control leaked across requests: %v", vs)
	}
}

func Test_exposeHeader(t *testing.T) {
	h := http.Header{}
	exposeHeader(h, "X-Request-ID")
	exposeHeader(h, "x-request-id")
	exposeHeader(h, "X-Cache")
	if got := h.Get("Access-Control-Expose-Headers"); got != "X-Request-ID, X-Cache" {
		t.Fatalf("got %q", got)
	}

	h = http.Header{}
	h.Set("Access-Control-Expose-Headers", "Content-Length, X-Cache")
	exposeHeader(h, "X-Cache")
	exposeHeader(h, "X-Request-ID")
	if got := h.Get("Access-Control-Expose-Headers"); got != "Content-Length, X-Cache, X-Request-ID" {
		t.Fatalf("got %q", got)
	}
}
