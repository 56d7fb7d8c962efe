// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// per-endpoint CORS guards, security headers, idempotency, rate limiting and
// edge caching.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/trustedloops-edge/docs"
	"github.com/tbourn/trustedloops-edge/internal/background"
	"github.com/tbourn/trustedloops-edge/internal/cache"
	"github.com/tbourn/trustedloops-edge/internal/config"
	"github.com/tbourn/trustedloops-edge/internal/http/handlers"
	"github.com/tbourn/trustedloops-edge/internal/http/middleware"
	"github.com/tbourn/trustedloops-edge/internal/llm"
	"github.com/tbourn/trustedloops-edge/internal/mail"
	"github.com/tbourn/trustedloops-edge/internal/ratelimit"
	"github.com/tbourn/trustedloops-edge/internal/repo"
	"github.com/tbourn/trustedloops-edge/internal/services"
)

// Deps are the process-lifetime collaborators the routes are built from.
// Cache, Tasks and Window may be nil; DB may be nil when idempotency keys
// should only be validated, not remembered.
type Deps struct {
	DB      *gorm.DB
	Cache   cache.Store
	Tasks   *background.Group
	Model   llm.Model
	Fetcher services.Fetcher
	Mailer  mail.Mailer
	// Window overrides the feedback limiter built from cfg.Mail.
	Window *ratelimit.Limiter
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath.
//
// Global middleware order:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured access logs with PII scrubbing
//  4. ScopedLogger: request-scoped logger for handlers and services
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Metrics
//  8. Security headers
//
// Per-endpoint chains:
//
//	chat:     Guard → token bucket → handler
//	feed:     Guard → gzip → edge cache → handler
//	feedback: Guard → idempotency → fixed window → handler
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Access logs with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{cfg.ClientIPHeader},
	}))

	// 4) Request-scoped logger available via middleware.LoggerFrom
	r.Use(middleware.ScopedLogger())

	// 5) Panic recovery to JSON 500
	r.Use(middleware.Recovery())

	// 6) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Security headers (HSTS only when enabled and request is HTTPS)
	sec := middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}
	r.Use(middleware.SecurityHeaders(sec))
	sec.NoStore = true
	noStore := middleware.SecurityHeaders(sec)

	// Fallbacks; guarded paths still answer 405 for extension methods
	var guarded middleware.GuardedRoutes
	r.NoRoute(guarded.Fallback(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.MsgNotFound)
	}))

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← adapters
	chatSvc := services.NewChatService(deps.Model, cfg.Chat.SystemPrompt)
	if cfg.Chat.ModelLabel != "" {
		chatSvc.ModelLabel = cfg.Chat.ModelLabel
	}
	if cfg.Chat.HistoryWindow > 0 {
		chatSvc.HistoryWindow = cfg.Chat.HistoryWindow
	}
	if cfg.Chat.MaxTokens > 0 {
		chatSvc.MaxTokens = cfg.Chat.MaxTokens
	}
	chatSvc.Timeout = cfg.UpstreamTimeout

	feedSvc := &services.FeedService{
		Fetcher:       deps.Fetcher,
		DefaultAuthor: cfg.Feed.DefaultAuthor,
		MaxPosts:      cfg.Feed.MaxPosts,
		Timeout:       cfg.UpstreamTimeout,
	}

	fbSvc := &services.FeedbackService{
		Mailer: deps.Mailer,
		Envelope: mail.Envelope{
			From:     cfg.Mail.From,
			To:       cfg.Mail.To,
			SiteName: cfg.Mail.SiteName,
		},
		Timeout: cfg.UpstreamTimeout,
	}

	h := handlers.New(chatSvc, feedSvc, fbSvc)

	clientKey := middleware.KeyByClientIP(cfg.ClientIPHeader)
	origins := cfg.CORS.AllowedOrigins

	var idemLookup middleware.IdempotencyLookup
	if deps.DB != nil {
		store := repo.NewIdempotencyStore(deps.DB, cfg.IdempotencyTTL)
		h.Idem = store
		idemLookup = store.Seen
	}

	window := deps.Window
	if window == nil {
		window = ratelimit.New(cfg.Mail.RateLimit, cfg.Mail.RateWindow)
	}

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Chat
		chat := []gin.HandlerFunc{noStore}
		if cfg.Chat.RateRPS > 0 {
			rl := middleware.NewRateLimiter("chat", cfg.Chat.RateRPS, cfg.Chat.RateBurst, clientKey)
			chat = append(chat, rl.Handler())
		}
		guarded.Any(api, "/chat",
			middleware.GuardOptions{Methods: []string{http.MethodPost}, AllowedOrigins: origins},
			append(chat, h.Chat)...,
		)

		// Feed
		guarded.Any(api, "/feed",
			middleware.GuardOptions{Methods: []string{http.MethodGet}, AllowedOrigins: origins},
			gzip.Gzip(gzip.DefaultCompression),
			middleware.EdgeCache(middleware.EdgeCacheOptions{
				Store: deps.Cache,
				TTL:   cfg.Feed.CacheTTL,
				Tasks: deps.Tasks,
			}),
			h.Feed,
		)

		// Feedback
		guarded.Any(api, "/feedback",
			middleware.GuardOptions{Methods: []string{http.MethodPost}, AllowedOrigins: origins},
			noStore,
			middleware.IdempotencyValidator(middleware.IdempotencyOptions{Client: clientKey}, idemLookup),
			middleware.WindowLimit(middleware.WindowLimitOptions{
				Name:    "feedback",
				Limiter: window,
				Key:     clientKey,
				Message: handlers.MsgTooMany,
			}),
			h.Feedback,
		)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
