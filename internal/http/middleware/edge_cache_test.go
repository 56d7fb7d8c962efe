package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/trustedloops-edge/internal/background"
	"github.com/tbourn/trustedloops-edge/internal/cache"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) (cache.Entry, error) {
	return cache.Entry{}, errors.New("backend down")
}
func (failingStore) Set(context.Context, string, cache.Entry) error { return errors.New("backend down") }

func TestEdgeCache_MissThenHitThenExpiry(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := cache.NewMemoryStore(clock)
	tasks := background.New(time.Second)

	calls := 0
	r := gin.New()
	r.GET("/api/feed", EdgeCache(EdgeCacheOptions{Store: store, TTL: time.Hour, Tasks: tasks, Now: clock}), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"n": calls})
	})

	get := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://edge.test/api/feed", nil))
		tasks.Wait()
		return w
	}

	w1 := get()
	if w1.Code != http.StatusOK || w1.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first: code=%d X-Cache=%q", w1.Code, w1.Header().Get("X-Cache"))
	}
	if w1.Header().Get("Cache-Control") != "public, max-age=3600" {
		t.Fatalf("Cache-Control: %q", w1.Header().Get("Cache-Control"))
	}

	now = now.Add(30 * time.Minute)
	w2 := get()
	if w2.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("second should hit, X-Cache=%q", w2.Header().Get("X-Cache"))
	}
	if w2.Body.String() != w1.Body.String() {
		t.Fatalf("replayed body differs: %q vs %q", w2.Body.String(), w1.Body.String())
	}
	if w2.Header().Get("Content-Type") != w1.Header().Get("Content-Type") || w2.Header().Get("Cache-Control") != "public, max-age=3600" {
		t.Fatalf("replayed headers differ: %v", w2.Header())
	}
	if calls != 1 {
		t.Fatalf("upstream must be called once within TTL, got %d", calls)
	}

	now = now.Add(31 * time.Minute)
	w3 := get()
	if w3.Header().Get("X-Cache") != "MISS" || calls != 2 {
		t.Fatalf("after expiry: X-Cache=%q calls=%d", w3.Header().Get("X-Cache"), calls)
	}
}

func TestEdgeCache_ErrorsAreNotCached(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := cache.NewMemoryStore(nil)

	calls := 0
	r := gin.New()
	r.GET("/api/feed", EdgeCache(EdgeCacheOptions{Store: store, TTL: time.Hour}), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feed"})
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/feed", nil))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("code=%d", w.Code)
		}
		if w.Header().Get("Cache-Control") != "" {
			t.Fatalf("error must not be marked cacheable")
		}
	}
	if calls != 2 || store.Len() != 0 {
		t.Fatalf("errors must not be cached: calls=%d len=%d", calls, store.Len())
	}
}

func TestEdgeCache_KeyIncludesQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := cache.NewMemoryStore(nil)

	calls := 0
	r := gin.New()
	r.GET("/api/feed", EdgeCache(EdgeCacheOptions{Store: store, TTL: time.Hour}), func(c *gin.Context) {
		calls++
		c.String(http.StatusOK, c.Query("v"))
	})
	for _, u := range []string{"/api/feed?v=1", "/api/feed?v=2", "/api/feed?v=1"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, u, nil))
	}
	if calls != 2 {
		t.Fatalf("distinct URLs must have distinct entries, calls=%d", calls)
	}
}

func TestEdgeCache_BackendFailureFallsThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	calls := 0
	r := gin.New()
	r.GET("/api/feed", EdgeCache(EdgeCacheOptions{Store: failingStore{}, TTL: time.Hour}), func(c *gin.Context) {
		calls++
		c.String(http.StatusOK, "ok")
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/feed", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" || calls != 1 {
		t.Fatalf("expected handler response despite cache failure: %d %q", w.Code, w.Body.String())
	}
}
