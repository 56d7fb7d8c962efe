// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the edge response cache for read endpoints. A live
// entry is replayed verbatim and the handler is skipped; on a miss the
// handler's response is captured and, when it is a 200, stored in the
// background so the client is not kept waiting on the cache backend.
package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/trustedloops-edge/internal/background"
	"github.com/tbourn/trustedloops-edge/internal/cache"
	"github.com/tbourn/trustedloops-edge/internal/observability"
)

// cacheHeader reports HIT or MISS to clients and access logs.
const cacheHeader = "X-Cache"

// EdgeCacheOptions configures EdgeCache.
type EdgeCacheOptions struct {
	Store cache.Store
	TTL   time.Duration
	// Tasks runs cache writes. Nil writes inline.
	Tasks *background.Group
	// Now is the clock used for expiry; nil means time.Now.
	Now func() time.Time
}

// EdgeCache serves GET requests from opt.Store and fills it on a miss.
// Only 200 responses are stored; they also get
// Cache-Control: public, max-age=<ttl> unless the handler set one.
func EdgeCache(opt EdgeCacheOptions) gin.HandlerFunc {
	now := opt.Now
	if now == nil {
		now = time.Now
	}
	cacheControl := "public, max-age=" + strconv.Itoa(int(opt.TTL.Seconds()))

	return func(c *gin.Context) {
		if opt.Store == nil || opt.TTL <= 0 || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cache.Key(c.Request)
		ctx := c.Request.Context()

		e, err := opt.Store.Get(ctx, key)
		switch {
		case err == nil && e.Live(now()):
			observability.CacheLookups.WithLabelValues("hit").Inc()
			replay(c, e)
			return
		case err == nil, errors.Is(err, cache.ErrMiss):
			observability.CacheLookups.WithLabelValues("miss").Inc()
		default:
			observability.CacheLookups.WithLabelValues("error").Inc()
			LoggerFrom(c).Warn().Err(err).Msg("edge cache lookup failed")
		}

		cw := &captureWriter{ResponseWriter: c.Writer, cacheControl: cacheControl}
		c.Writer = cw
		c.Header(cacheHeader, "MISS")
		c.Next()
		c.Writer = cw.ResponseWriter

		if cw.Status() != http.StatusOK || cw.buf.Len() == 0 {
			return
		}

		entry := cache.Entry{
			Status:    http.StatusOK,
			Header:    cache.FilterHeader(cw.Header()),
			Body:      append([]byte(nil), cw.buf.Bytes()...),
			ExpiresAt: now().Add(opt.TTL),
		}
		store := func(ctx context.Context) error { return opt.Store.Set(ctx, key, entry) }
		if opt.Tasks != nil {
			opt.Tasks.Go(ctx, "edge-cache-store", store)
			return
		}
		if err := store(ctx); err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("edge cache store failed")
		}
	}
}

// replay writes a stored entry and aborts the chain.
func replay(c *gin.Context, e cache.Entry) {
	h := c.Writer.Header()
	for k, vs := range e.Header {
		h.Del(k)
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	h.Set(cacheHeader, "HIT")
	c.Status(e.Status)
	_, _ = c.Writer.Write(e.Body)
	c.Abort()
}

// captureWriter tees the response body and stamps Cache-Control on 200s
// before the header is flushed.
type captureWriter struct {
	gin.ResponseWriter
	buf          bytes.Buffer
	cacheControl string
}

func (w *captureWriter) WriteHeader(code int) {
	if code == http.StatusOK {
		w.stamp()
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if !w.Written() && w.Status() == http.StatusOK {
		w.stamp()
	}
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	if !w.Written() && w.Status() == http.StatusOK {
		w.stamp()
	}
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func (w *captureWriter) stamp() {
	if w.Header().Get("Cache-Control") == "" {
		w.Header().Set("Cache-Control", w.cacheControl)
	}
}
