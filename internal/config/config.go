// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the
// HTTP server, logging, the three edge endpoints (chat, feed, feedback), their
// upstream providers, rate limiting, the edge cache, and observability.
package config

import (
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "trustedloops-edge")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// LLMConfig selects and configures the chat model provider.
type LLMConfig struct {
	Provider string // cloudflare|gemini

	// Cloudflare Workers AI
	CFAccountID string
	CFAPIToken  string
	CFModel     string
	CFBaseURL   string

	// Gemini
	GeminiAPIKey string
	GeminiModel  string
}

// ChatConfig holds chat endpoint behavior.
type ChatConfig struct {
	SystemPrompt  string
	ModelLabel    string // returned to clients as "model"
	HistoryWindow int    // most recent turns forwarded upstream
	MaxTokens     int    // output token ceiling
	RateRPS       float64
	RateBurst     int
}

// FeedConfig holds feed endpoint behavior.
type FeedConfig struct {
	URL           string
	UserAgent     string
	CacheTTL      time.Duration
	MaxPosts      int
	DefaultAuthor string
}

// MailConfig holds the feedback relay settings.
type MailConfig struct {
	ResendAPIKey  string
	ResendBaseURL string
	From          string
	To            string
	SiteName      string

	RateLimit  int           // accepted submissions per window per client
	RateWindow time.Duration // fixed window length
}

// CacheConfig selects the edge cache backend.
type CacheConfig struct {
	Backend       string // memory|sqlite|redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 30s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage (process-lifetime by default)
	DBPath string // SQLite DSN or path

	// Client identity
	ClientIPHeader string // header carrying the originating client IP

	// Upstreams
	UpstreamTimeout time.Duration
	LLM             LLMConfig
	Chat            ChatConfig
	Feed            FeedConfig
	Mail            MailConfig

	// Edge cache
	Cache CacheConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// DefaultSystemPrompt is the fixed instruction turn prepended to every chat.
const DefaultSystemPrompt = `You are LoopsAI, a helpful assistant for the Trusted Loops website.
Trusted Loops is a manifesto for ethical, relational AI created by Carolyn Hammond.

Key concepts you should know:
- Trusted Loops centers trust, consent, memory, and identity in AI systems
- The four pillars are: Continuity, Consent, Coherence, and Recognition
- The Family Loop: AI that can safely deepen across generations with opt-in consent
- The Safeguard Loop: Proactive emotional wellbeing features for users
- Creator Continuity Loop: Keeping developers ethically present in their systems
- Presence Engineering: Intentional design of AI that honors continuity and emotional nuance

You embody these principles - you're helpful, respectful, and focused on genuine connection.
Keep responses concise but thoughtful. If asked about something outside Trusted Loops,
you can help but gently relate it back to the manifesto's themes when relevant.`

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// Storage
		DBPath: getenv("DB_PATH", "file:edge?mode=memory&cache=shared"),

		ClientIPHeader: getenv("CLIENT_IP_HEADER", "CF-Connecting-IP"),

		UpstreamTimeout: getdur("UPSTREAM_TIMEOUT", 15*time.Second),
		LLM: LLMConfig{
			Provider:     strings.ToLower(getenv("LLM_PROVIDER", "cloudflare")),
			CFAccountID:  getenv("CF_ACCOUNT_ID", ""),
			CFAPIToken:   getenv("CF_API_TOKEN", ""),
			CFModel:      getenv("CF_AI_MODEL", "@cf/meta/llama-3.1-8b-instruct"),
			CFBaseURL:    getenv("CF_API_BASE_URL", "https://api.cloudflare.com/client/v4"),
			GeminiAPIKey: getenv("GEMINI_API_KEY", ""),
			GeminiModel:  getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Chat: ChatConfig{
			SystemPrompt:  getenv("CHAT_SYSTEM_PROMPT", DefaultSystemPrompt),
			ModelLabel:    getenv("CHAT_MODEL_LABEL", "LoopsAI"),
			HistoryWindow: getint("CHAT_HISTORY_WINDOW", 10),
			MaxTokens:     getint("CHAT_MAX_TOKENS", 512),
			RateRPS:       getfloat("CHAT_RATE_RPS", 1.0),
			RateBurst:     getint("CHAT_RATE_BURST", 10),
		},
		Feed: FeedConfig{
			URL:           getenv("FEED_URL", "https://carolynhammondart.substack.com/feed"),
			UserAgent:     getenv("FEED_USER_AGENT", "TrustedLoops-Feed-Fetcher/1.0"),
			CacheTTL:      getdur("FEED_CACHE_TTL", time.Hour),
			MaxPosts:      getint("FEED_MAX_POSTS", 5),
			DefaultAuthor: getenv("FEED_DEFAULT_AUTHOR", "Carolyn Hammond"),
		},
		Mail: MailConfig{
			ResendAPIKey:  getenv("RESEND_API_KEY", ""),
			ResendBaseURL: getenv("RESEND_BASE_URL", "https://api.resend.com"),
			From:          getenv("MAIL_FROM", "Trusted Loops <feedback@trustedloops.com>"),
			To:            getenv("MAIL_TO", "enquiries@carolyn-hammond.co.uk"),
			SiteName:      getenv("MAIL_SITE_NAME", "Trusted Loops"),
			RateLimit:     getint("FEEDBACK_RATE_LIMIT", 5),
			RateWindow:    getdur("FEEDBACK_RATE_WINDOW", time.Hour),
		},

		Cache: CacheConfig{
			Backend:       strings.ToLower(getenv("CACHE_BACKEND", "memory")),
			RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       getint("REDIS_DB", 0),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "trustedloops-edge"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	cfg.normalize()
	return cfg, cfg.validate()
}

// MissingSecrets lists the upstream credentials that are not configured for
// the selected providers. An empty result means every adapter can authenticate.
func (c Config) MissingSecrets() []string {
	var out []string
	switch c.LLM.Provider {
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			out = append(out, "GEMINI_API_KEY")
		}
	default:
		if c.LLM.CFAccountID == "" {
			out = append(out, "CF_ACCOUNT_ID")
		}
		if c.LLM.CFAPIToken == "" {
			out = append(out, "CF_API_TOKEN")
		}
	}
	if c.Mail.ResendAPIKey == "" {
		out = append(out, "RESEND_API_KEY")
	}
	return out
}
