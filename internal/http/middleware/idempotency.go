// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key header on the feedback route and
// records, per request, whether the key names a submission that already went
// out. The handler decides how to answer a replay; the limiters only read the
// bypass flag.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client's key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	idemStateKey      = "idempotency"
	defaultIdemMaxLen = 200
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~:\-]+$`)

// idemState is stashed on the gin context once a key has been accepted.
type idemState struct {
	key    string
	client string
	replay bool
}

func idemFrom(c *gin.Context) (idemState, bool) {
	v, ok := c.Get(idemStateKey)
	if !ok {
		return idemState{}, false
	}
	s, ok := v.(idemState)
	return s, ok
}

// GetIdempotencyKey returns the accepted key, if any.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s, ok := idemFrom(c)
	return s.key, ok && s.key != ""
}

// ClientKey returns the client identity the accepted key is scoped to.
func ClientKey(c *gin.Context) string {
	s, _ := idemFrom(c)
	return s.client
}

// IsReplay reports whether the lookup found a completed request for the key.
func IsReplay(c *gin.Context) bool {
	s, _ := idemFrom(c)
	return s.replay
}

// IsRateBypass reports whether rate limiting should let the request through
// without charging it. Only replays qualify.
func IsRateBypass(c *gin.Context) bool {
	return IsReplay(c)
}

// IdempotencyOptions tunes key validation. Zero values pick the defaults.
type IdempotencyOptions struct {
	MaxLen  int            // default 200
	Pattern *regexp.Regexp // default ^[A-Za-z0-9._~:\-]+$
	Client  KeyFunc        // default KeyByClientIP("")
}

// IdempotencyLookup reports whether (clientKey, key) names a completed,
// unexpired request. Expiry is the implementation's job.
type IdempotencyLookup func(ctx context.Context, clientKey, key string, now time.Time) (bool, error)

// IdempotencyValidator accepts requests without the header untouched and
// rejects malformed keys with 400. A failing lookup is logged and treated as
// a miss so the submission still goes through.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	if opts.MaxLen <= 0 {
		opts.MaxLen = defaultIdemMaxLen
	}
	if opts.Pattern == nil {
		opts.Pattern = defaultIdemPattern
	}
	if opts.Client == nil {
		opts.Client = KeyByClientIP("")
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > opts.MaxLen || !opts.Pattern.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid Idempotency-Key"})
			return
		}

		st := idemState{key: key, client: opts.Client(c)}
		if lookup != nil {
			hit, err := lookup(c.Request.Context(), st.client, key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed")
			}
			st.replay = hit && err == nil
		}
		c.Set(idemStateKey, st)
		c.Next()
	}
}
