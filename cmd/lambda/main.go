// Command lambda serves the edge gateway from AWS Lambda behind API Gateway.
// Set RUN_LOCAL=true to serve the same router over plain HTTP instead.
package main

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/trustedloops-edge/internal/app"
	"github.com/tbourn/trustedloops-edge/internal/background"
	"github.com/tbourn/trustedloops-edge/internal/config"
	"github.com/tbourn/trustedloops-edge/internal/observability"
	"github.com/tbourn/trustedloops-edge/internal/sysutil"
)

var version string

func main() {
	if err := sysutil.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("load .env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.ConfigureLogging(cfg.LogLevel, cfg.LogPretty, os.Stdout)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, sysutil.Version(version), observability.RuntimeLambda)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}

	if sysutil.IsTruthy(os.Getenv("RUN_LOCAL")) {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Msg("running local server")
		if err := a.Router.Run(addr); err != nil {
			log.Fatal().Err(err).Msg("local server failed")
		}
		return
	}

	adapter := ginadapter.New(a.Router)
	lambda.Start(handler(adapter, a, newPurger(cfg.IdempotencyTTL, a.Purge)))
}

type proxy interface {
	ProxyWithContext(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
}

// handler proxies one invocation and then drains background work, since the
// execution environment may be frozen as soon as it returns.
func handler(p proxy, a *app.App, pg *purger) func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		resp, err := p.ProxyWithContext(ctx, req)
		if pg.due() {
			a.Tasks.Go(ctx, "purge", pg.fn)
		}
		drain(ctx, a.Tasks)
		return resp, err
	}
}

// purger spaces expiry purges at least every apart, counted from cold start,
// so most invocations only wait for their own cache writes.
type purger struct {
	every time.Duration
	fn    func(context.Context) error
	now   func() time.Time

	mu   sync.Mutex
	last time.Time
}

func newPurger(every time.Duration, fn func(context.Context) error) *purger {
	return &purger{every: every, fn: fn, now: time.Now, last: time.Now()}
}

func (p *purger) due() bool {
	if p == nil || p.every <= 0 || p.fn == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if now.Sub(p.last) < p.every {
		return false
	}
	p.last = now
	return true
}

func drain(ctx context.Context, tasks *background.Group) {
	if err := tasks.WaitContext(ctx); err != nil {
		log.Warn().Err(err).Msg("background tasks outlived the invocation")
	}
}
