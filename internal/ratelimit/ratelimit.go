// Package ratelimit implements a fixed-window request counter keyed by an
// opaque client key (typically the originating IP).
//
// A window opens on the first accepted request for a key and lasts Window.
// Up to Limit requests are accepted inside it; the next request after the
// window has strictly elapsed opens a fresh window with a count of one.
//
// The limiter is process-local and safe for concurrent use. Expired records
// are swept opportunistically so the table stays bounded by the number of
// clients seen within one window.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is matched (via errors.Is) by every rejection.
var ErrRateLimited = errors.New("rate limited")

// ExceededError is returned by Allow when the key has used its quota for the
// current window. RetryAfter is the time left until the window resets.
type ExceededError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q; retry after %s", e.Key, e.RetryAfter)
}

// Is makes errors.Is(err, ErrRateLimited) succeed.
func (e *ExceededError) Is(target error) bool { return target == ErrRateLimited }

// Record is the per-key window state.
type Record struct {
	WindowStart time.Time
	Count       int
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock injects the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithSweepEvery sets how many Allow calls pass between expired-record sweeps.
func WithSweepEvery(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.sweepEvery = n
		}
	}
}

// Limiter is a fixed-window counter table.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu         sync.Mutex
	records    map[string]*Record
	calls      int
	sweepEvery int
}

// New builds a Limiter accepting limit requests per window per key.
// limit values < 1 are coerced to 1.
func New(limit int, window time.Duration, opts ...Option) *Limiter {
	if limit < 1 {
		limit = 1
	}
	l := &Limiter{
		limit:      limit,
		window:     window,
		now:        time.Now,
		records:    make(map[string]*Record),
		sweepEvery: 1000,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Limit returns the configured per-window quota.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

// Allow records one request for key. It returns nil when accepted and an
// *ExceededError when the key's quota for the current window is spent.
func (l *Limiter) Allow(key string) error {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Sweep before touching key so an expired record is never refreshed.
	l.calls++
	if l.calls >= l.sweepEvery {
		l.sweepLocked(now)
		l.calls = 0
	}

	rec, ok := l.records[key]
	if !ok || now.Sub(rec.WindowStart) > l.window {
		l.records[key] = &Record{WindowStart: now, Count: 1}
		return nil
	}
	if rec.Count >= l.limit {
		retry := l.window - now.Sub(rec.WindowStart)
		if retry < 0 {
			retry = 0
		}
		return &ExceededError{Key: key, RetryAfter: retry}
	}
	rec.Count++
	return nil
}

// Snapshot returns a copy of key's record.
func (l *Limiter) Snapshot(key string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[key]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func (l *Limiter) sweepLocked(now time.Time) {
	for k, rec := range l.records {
		if now.Sub(rec.WindowStart) > l.window {
			delete(l.records, k)
		}
	}
}
