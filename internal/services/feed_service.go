// Package services – FeedService
//
// This file implements FeedService, which downloads the publication's RSS
// document, extracts the newest posts and stamps the result with the fetch
// time. Caching is handled in front of it by the edge cache middleware.
package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tbourn/trustedloops-edge/internal/domain"
	"github.com/tbourn/trustedloops-edge/internal/feed"
	"github.com/tbourn/trustedloops-edge/internal/observability"
)

// fetchedLayout matches JavaScript's Date.prototype.toISOString.
const fetchedLayout = "2006-01-02T15:04:05.000Z07:00"

const defaultMaxPosts = 5

// Fetcher returns the raw feed document.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// FeedService produces the trimmed post list served by the feed endpoint.
type FeedService struct {
	Fetcher       Fetcher
	DefaultAuthor string
	MaxPosts      int
	Timeout       time.Duration

	// Now is the clock used for the fetched stamp; nil means time.Now.
	Now func() time.Time
}

// Latest fetches and parses the feed, keeping at most MaxPosts items in
// document order.
func (s *FeedService) Latest(ctx context.Context) (*domain.Feed, error) {
	ctx, span := otel.Tracer("services/FeedService").Start(ctx, "Latest")
	defer span.End()

	callCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.Fetcher.Fetch(callCtx)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		outcome := observability.OutcomeError
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = observability.OutcomeTimeout
		}
		observability.ObserveUpstream(UpstreamFeed, outcome, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "feed fetch failed")
		return nil, &UpstreamError{Upstream: UpstreamFeed, Err: err}
	}
	observability.ObserveUpstream(UpstreamFeed, observability.OutcomeOK, elapsed)

	posts := feed.Parse(raw, s.DefaultAuthor)
	max := s.MaxPosts
	if max <= 0 {
		max = defaultMaxPosts
	}
	if len(posts) > max {
		posts = posts[:max]
	}
	if posts == nil {
		posts = []domain.FeedPost{}
	}
	span.SetAttributes(attribute.Int("feed.posts", len(posts)))

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return &domain.Feed{
		Posts:   posts,
		Fetched: now().UTC().Format(fetchedLayout),
	}, nil
}
