package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/trustedloops-edge/internal/feed"
)

type fakeFetcher struct {
	calls int
	body  string
	err   error
}

func (f *fakeFetcher) Fetch(context.Context) (string, error) {
	f.calls++
	return f.body, f.err
}

func rss(n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss><channel><title>T</title>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<item><title><![CDATA[Post %d]]></title><link>https://x.substack.com/p/%d</link><pubDate>Sun, 05 Jan 2025 10:00:00 GMT</pubDate></item>`, i, i)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func TestFeedService_Latest_TruncatesAndStamps(t *testing.T) {
	f := &fakeFetcher{body: rss(8)}
	svc := &FeedService{
		Fetcher:       f,
		DefaultAuthor: "Carolyn Hammond",
		MaxPosts:      5,
		Now:           func() time.Time { return time.Date(2025, 1, 5, 12, 0, 0, 0, time.FixedZone("X", 3600)) },
	}

	out, err := svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(out.Posts) != 5 {
		t.Fatalf("want 5 posts, got %d", len(out.Posts))
	}
	for i, p := range out.Posts {
		if p.Title != fmt.Sprintf("Post %d", i) {
			t.Fatalf("order broken at %d: %q", i, p.Title)
		}
		if p.Author != "Carolyn Hammond" || p.Date != "Jan 5, 2025" {
			t.Fatalf("post %d: %+v", i, p)
		}
	}
	if out.Fetched != "2025-01-05T11:00:00.000Z" {
		t.Fatalf("fetched: %q", out.Fetched)
	}
}

func TestFeedService_Latest_EmptyFeedIsEmptySlice(t *testing.T) {
	svc := &FeedService{Fetcher: &fakeFetcher{body: rss(0)}}
	out, err := svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if out.Posts == nil || len(out.Posts) != 0 {
		t.Fatalf("want non-nil empty slice, got %#v", out.Posts)
	}
}

func TestFeedService_Latest_FetchError(t *testing.T) {
	svc := &FeedService{Fetcher: &fakeFetcher{err: &feed.StatusError{StatusCode: 503}}}
	_, err := svc.Latest(context.Background())
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Upstream != UpstreamFeed {
		t.Fatalf("expected feed UpstreamError, got %v", err)
	}
	var se *feed.StatusError
	if !errors.As(err, &se) || se.StatusCode != 503 {
		t.Fatalf("expected wrapped StatusError")
	}
}
