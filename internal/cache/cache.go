// Package cache provides edge response caching backends. Entries are complete
// HTTP responses (status, replayable headers, body) addressed by
// "<METHOD> <full URL>" and expire at an absolute instant.
package cache

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrMiss is returned by Get when no live entry exists for the key.
var ErrMiss = errors.New("cache miss")

// Entry is a stored response.
type Entry struct {
	Status    int         `json:"status"`
	Header    http.Header `json:"header"`
	Body      []byte      `json:"body"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Live reports whether the entry is still servable at now.
func (e Entry) Live(now time.Time) bool { return now.Before(e.ExpiresAt) }

// Store is a cache backend. Implementations are safe for concurrent use.
type Store interface {
	// Get returns the live entry for key, or ErrMiss.
	Get(ctx context.Context, key string) (Entry, error)
	// Set stores e under key until e.ExpiresAt.
	Set(ctx context.Context, key string, e Entry) error
}

// Key builds the cache key for a request: method, then the absolute URL.
func Key(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return r.Method + " " + scheme + "://" + r.Host + r.URL.RequestURI()
}

// ReplayHeaders are the response headers stored with an entry. CORS headers
// are per request and left to the guard.
var ReplayHeaders = []string{"Content-Type", "Cache-Control"}

// FilterHeader copies the replayable subset of h.
func FilterHeader(h http.Header) http.Header {
	out := make(http.Header, len(ReplayHeaders))
	for _, k := range ReplayHeaders {
		if vs := h.Values(k); len(vs) > 0 {
			out[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
		}
	}
	return out
}
