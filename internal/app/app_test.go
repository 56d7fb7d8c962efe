package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tbourn/trustedloops-edge/internal/config"
	"github.com/tbourn/trustedloops-edge/internal/domain"
	"github.com/tbourn/trustedloops-edge/internal/llm"
	"github.com/tbourn/trustedloops-edge/internal/mail"
	"github.com/tbourn/trustedloops-edge/internal/observability"
	"github.com/tbourn/trustedloops-edge/internal/repo"
)

type fakeModel struct{}

func (fakeModel) Name() string { return "fake" }
func (fakeModel) Generate(context.Context, llm.Request) (string, error) {
	return "ok", nil
}

type fakeFetcher struct{ calls int }

func (f *fakeFetcher) Fetch(context.Context) (string, error) {
	f.calls++
	return `<rss><channel><item><title>A</title><link>https://x/p/1</link></item></channel></rss>`, nil
}

type nopMailer struct{}

func (nopMailer) Send(context.Context, mail.Message) error { return nil }

func testConfig(t *testing.T) config.Config {
	return config.Config{
		GinMode:         "test",
		APIBasePath:     "/api",
		DBPath:          "file:" + t.Name() + "?mode=memory&cache=shared",
		Cache:           config.CacheConfig{Backend: "memory"},
		Feed:            config.FeedConfig{CacheTTL: time.Minute, MaxPosts: 5},
		Mail:            config.MailConfig{RateLimit: 5, RateWindow: time.Hour},
		IdempotencyTTL:  time.Hour,
		UpstreamTimeout: time.Second,
		OTEL:            config.OTELConfig{ServiceName: "app-test"},
	}
}

func TestNew_ServesFeedAndWaitsForCacheWrite(t *testing.T) {
	f := &fakeFetcher{}
	a, err := New(context.Background(), testConfig(t), "test", observability.RuntimeServer,
		Overrides{Model: fakeModel{}, Fetcher: f, Mailer: nopMailer{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/feed", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("GET /api/feed = %d", w.Code)
		}
		// cache writes are asynchronous; settle before the next request
		a.Tasks.Wait()
	}
	if f.calls != 1 {
		t.Fatalf("upstream calls=%d, want 1", f.calls)
	}
}

func TestNewModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM = config.LLMConfig{Provider: "cloudflare", CFAccountID: "acct", CFAPIToken: "tok", CFModel: "@cf/meta/llama"}
	m, err := NewModel(context.Background(), cfg)
	if err != nil {
		t.Fatalf("cloudflare: %v", err)
	}
	if _, ok := m.(*llm.CloudflareModel); !ok {
		t.Fatalf("got %T", m)
	}

	cfg.LLM.Provider = "openai"
	if _, err := NewModel(context.Background(), cfg); err == nil {
		t.Fatalf("unknown provider should fail")
	}
}

func TestPurge_RemovesExpiredKeys(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), "test", observability.RuntimeServer,
		Overrides{Model: fakeModel{}, Fetcher: &fakeFetcher{}, Mailer: nopMailer{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	ctx := context.Background()
	if err := repo.NewIdempotencyStore(a.DB, -time.Minute).Remember(ctx, "203.0.113.5", "old", 200); err != nil {
		t.Fatalf("seed: %v", err)
	}
	fresh := repo.NewIdempotencyStore(a.DB, time.Hour)
	if err := fresh.Remember(ctx, "203.0.113.5", "fresh", 200); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := a.Purge(ctx); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if hit, err := fresh.Seen(ctx, "203.0.113.5", "fresh", time.Now().UTC()); !hit || err != nil {
		t.Fatalf("fresh key lost: %v %v", hit, err)
	}
	var n int64
	a.DB.Model(&domain.Idempotency{}).Where("key = ?", "old").Count(&n)
	if n != 0 {
		t.Fatalf("expired rows left: %d", n)
	}
}

func TestPurge_SQLiteCacheRows(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Backend = "sqlite"
	a, err := New(context.Background(), cfg, "test", observability.RuntimeServer,
		Overrides{Model: fakeModel{}, Fetcher: &fakeFetcher{}, Mailer: nopMailer{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	ctx := context.Background()
	now := time.Now().UTC()
	rows := []domain.CacheEntry{
		{Key: "stale", Status: 200, Body: []byte("a"), CreatedAt: now, ExpiresAt: now.Add(-time.Second)},
		{Key: "live", Status: 200, Body: []byte("b"), CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	}
	if err := a.DB.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := a.Purge(ctx); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	var keys []string
	a.DB.Model(&domain.CacheEntry{}).Pluck("key", &keys)
	if len(keys) != 1 || keys[0] != "live" {
		t.Fatalf("cache rows after purge: %v", keys)
	}
}
