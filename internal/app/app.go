// Package app assembles the gateway from configuration: storage, cache,
// upstream adapters, tracing and the Gin router. Both the HTTP server and the
// Lambda entrypoint build the same App.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/trustedloops-edge/internal/background"
	"github.com/tbourn/trustedloops-edge/internal/cache"
	"github.com/tbourn/trustedloops-edge/internal/config"
	"github.com/tbourn/trustedloops-edge/internal/feed"
	httpapi "github.com/tbourn/trustedloops-edge/internal/http"
	"github.com/tbourn/trustedloops-edge/internal/llm"
	"github.com/tbourn/trustedloops-edge/internal/mail"
	"github.com/tbourn/trustedloops-edge/internal/observability"
	"github.com/tbourn/trustedloops-edge/internal/repo"
	"github.com/tbourn/trustedloops-edge/internal/services"
)

// App is a fully wired gateway.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Cache  cache.Store
	// Tasks runs edge cache writes; wait on it before exit or freeze.
	Tasks *background.Group

	shutdownOTel func(context.Context) error
}

// Overrides replaces adapters built from configuration. Used by tests and
// local tooling; nil fields keep the configured adapter.
type Overrides struct {
	Model   llm.Model
	Fetcher services.Fetcher
	Mailer  mail.Mailer
}

// New builds an App. runtime is observability.RuntimeServer or RuntimeLambda.
func New(ctx context.Context, cfg config.Config, version, runtime string, ov ...Overrides) (*App, error) {
	var o Overrides
	if len(ov) > 0 {
		o = ov[0]
	}

	if missing := cfg.MissingSecrets(); len(missing) > 0 {
		log.Warn().Strs("missing", missing).Msg("upstream credentials not configured; affected endpoints will fail")
	}

	shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version, runtime)
	if err != nil {
		return nil, fmt.Errorf("otel: %w", err)
	}

	db, err := repo.Open(cfg.DBPath, repo.Options{Tracing: cfg.OTEL.Enabled})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	store, err := cache.Open(ctx, cfg.Cache, db)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	model := o.Model
	if model == nil {
		if model, err = NewModel(ctx, cfg); err != nil {
			return nil, err
		}
	}
	var fetcher services.Fetcher = feed.NewClient(cfg.Feed.URL, cfg.Feed.UserAgent, cfg.UpstreamTimeout)
	if o.Fetcher != nil {
		fetcher = o.Fetcher
	}
	mailer := o.Mailer
	if mailer == nil {
		mailer = mail.NewResendMailer(cfg.Mail.ResendBaseURL, cfg.Mail.ResendAPIKey, cfg.UpstreamTimeout)
	}

	tasks := background.New(cfg.UpstreamTimeout)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:      db,
		Cache:   store,
		Tasks:   tasks,
		Model:   model,
		Fetcher: fetcher,
		Mailer:  mailer,
	}, cfg)

	log.Info().
		Str("llm", model.Name()).
		Str("cache", cfg.Cache.Backend).
		Str("runtime", runtime).
		Str("version", version).
		Msg("gateway ready")

	return &App{
		Config:       cfg,
		Router:       r,
		DB:           db,
		Cache:        store,
		Tasks:        tasks,
		shutdownOTel: shutdown,
	}, nil
}

// NewModel selects the chat model named by cfg.LLM.Provider.
func NewModel(ctx context.Context, cfg config.Config) (llm.Model, error) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "", "cloudflare":
		return llm.NewCloudflareModel(cfg.LLM.CFBaseURL, cfg.LLM.CFAccountID, cfg.LLM.CFAPIToken, cfg.LLM.CFModel, cfg.UpstreamTimeout), nil
	case "gemini":
		m, err := llm.NewGeminiModel(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}

// Purge deletes expired idempotency records and, when the edge cache lives
// in the database, expired cache rows.
func (a *App) Purge(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	n, err := repo.NewIdempotencyStore(a.DB, a.Config.IdempotencyTTL).Purge(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("purge idempotency: %w", err)
	}
	if n > 0 {
		log.Debug().Int64("rows", n).Msg("purged expired idempotency keys")
	}

	p, ok := a.Cache.(interface {
		Purge(context.Context) (int64, error)
	})
	if !ok {
		return nil
	}
	if n, err = p.Purge(ctx); err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}
	if n > 0 {
		log.Debug().Int64("rows", n).Msg("purged expired cache entries")
	}
	return nil
}

// RunJanitor calls Purge every interval until ctx ends.
func (a *App) RunJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := a.Purge(ctx); err != nil {
				log.Warn().Err(err).Msg("purge failed")
			}
		}
	}
}

// Close waits for background tasks, then flushes traces and closes the
// cache and database.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Tasks.WaitContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("background tasks: %w", err))
	}
	if a.shutdownOTel != nil {
		if err := a.shutdownOTel(ctx); err != nil {
			errs = append(errs, fmt.Errorf("otel shutdown: %w", err))
		}
	}
	if c, ok := a.Cache.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache close: %w", err))
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("db close: %w", err))
		}
	}
	return errors.Join(errs...)
}
