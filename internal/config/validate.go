package config

import (
	"errors"
	"slices"
	"strings"
)

func (c *Config) normalize() {
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	if !slices.Contains([]string{"debug", "release", "test"}, c.GinMode) {
		c.GinMode = "release"
	}
	if c.Cache.Backend == "sql" {
		c.Cache.Backend = "sqlite"
	}
}

// validate reports every problem at once so a bad deployment is fixed in
// one round.
func (c Config) validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }
	oneOf := func(v string, allowed ...string) bool { return slices.Contains(allowed, v) }

	check(oneOf(c.LogLevel, "debug", "info", "warn", "error", "fatal", "panic"),
		"LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	check(!blank(c.Port), "PORT must not be empty")
	check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	check(!blank(c.DBPath), "DB_PATH must not be empty")
	check(c.UpstreamTimeout > 0, "UPSTREAM_TIMEOUT must be > 0")

	check(oneOf(c.LLM.Provider, "cloudflare", "gemini"), "LLM_PROVIDER must be one of: cloudflare, gemini")
	check(c.Chat.HistoryWindow >= 0, "CHAT_HISTORY_WINDOW must be >= 0")
	check(c.Chat.MaxTokens >= 1, "CHAT_MAX_TOKENS must be >= 1")
	check(c.Chat.RateRPS >= 0, "CHAT_RATE_RPS must be >= 0")
	check(c.Chat.RateBurst >= 1, "CHAT_RATE_BURST must be >= 1")

	check(!blank(c.Feed.URL), "FEED_URL must not be empty")
	check(c.Feed.CacheTTL > 0, "FEED_CACHE_TTL must be > 0")
	check(c.Feed.MaxPosts >= 1, "FEED_MAX_POSTS must be >= 1")

	check(!blank(c.Mail.From) && !blank(c.Mail.To), "MAIL_FROM and MAIL_TO must not be empty")
	check(c.Mail.RateLimit >= 1, "FEEDBACK_RATE_LIMIT must be >= 1")
	check(c.Mail.RateWindow > 0, "FEEDBACK_RATE_WINDOW must be > 0")

	check(oneOf(c.Cache.Backend, "memory", "sqlite", "redis"), "CACHE_BACKEND must be one of: memory, sqlite, redis")
	check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	return errors.Join(errs...)
}
