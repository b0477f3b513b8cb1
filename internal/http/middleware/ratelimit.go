// This file implements a process-local, token-bucket rate limiter with
// per-identity buckets and opportunistic garbage collection. It caps how fast
// one visitor can push questions at the completion endpoint; it is not an
// authorization mechanism.
package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/tbourn/portfolio-assistant/internal/sysutil"
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyBySessionOrIP prefers the widget session (header, then the "session"
// query parameter used by beacon requests) and falls back to the client IP.
// Keys are prefixed so the two namespaces cannot collide.
func KeyBySessionOrIP() keyFunc {
	return func(c *gin.Context) string {
		if s := strings.TrimSpace(sysutil.FirstNonEmpty(c.GetHeader(SessionHeader), c.Query("session"))); s != "" {
			return "session:" + s
		}
		return "ip:" + c.ClientIP()
	}
}

// visitor holds a single rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements a per-key token-bucket rate limiter.
// Idle buckets are evicted after ttl during lookups. Safe for concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64

	// methods limits which HTTP methods consume tokens; empty = all.
	methods map[string]struct{}
}

// NewRateLimiter constructs a RateLimiter with the given tokens-per-second
// and burst size (<= 0 is coerced to 1), keyed by keyFn. When methods are
// given, only those are limited.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc, methods ...string) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	rl := &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
	if len(methods) > 0 {
		rl.methods = make(map[string]struct{}, len(methods))
		for _, m := range methods {
			rl.methods[strings.ToUpper(m)] = struct{}{}
		}
	}
	return rl
}

// getVisitor returns (and refreshes) the limiter for key, creating it if
// absent. GC runs every 5000 lookups, before the requested entry is touched,
// so a stale bucket is evicted even when it is the one being fetched.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, vv := range rl.visitors {
			if now.Sub(vv.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

func (rl *RateLimiter) limited(method string) bool {
	if rl.methods == nil {
		return true
	}
	_, ok := rl.methods[method]
	return ok
}

// Handler returns a Gin middleware that enforces per-key limits. Rejected
// requests get 429 with Retry-After: 1 and the standard error envelope
// (code "rate_limited").
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limited(c.Request.Method) || rl.getVisitor(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
