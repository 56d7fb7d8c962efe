// Package background runs fire-and-forget work (edge cache writes) off the
// request path while still letting the process wait for it before exiting.
package background

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Group tracks in-flight background tasks. The zero value is not usable; call New.
type Group struct {
	eg      *errgroup.Group
	timeout time.Duration
}

// New returns a Group whose tasks each receive a context bounded by timeout.
// Non-positive timeouts default to 5s.
func New(timeout time.Duration) *Group {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Group{eg: new(errgroup.Group), timeout: timeout}
}

// Go schedules fn. The context passed to fn is detached from parent
// cancellation (the request may already be finished) but keeps its values,
// and is bounded by the Group timeout. Errors are logged, never propagated,
// so one failed task does not poison Wait.
func (g *Group) Go(parent context.Context, name string, fn func(ctx context.Context) error) {
	if parent == nil {
		parent = context.Background()
	}
	base := context.WithoutCancel(parent)
	g.eg.Go(func() error {
		ctx, cancel := context.WithTimeout(base, g.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Warn().Err(err).Str("task", name).Msg("background task failed")
		}
		return nil
	})
}

// Wait blocks until every scheduled task has returned.
func (g *Group) Wait() {
	_ = g.eg.Wait()
}

// WaitContext is Wait bounded by ctx. It reports ctx.Err() if ctx ends first.
func (g *Group) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
