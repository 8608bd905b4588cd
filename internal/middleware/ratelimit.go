package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ghaleb-d/sol-transfer/internal/telemetry"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const defaultIdleTTL = 10 * time.Minute

// RateLimiter applies a token bucket per client IP and evicts idle buckets
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu      sync.Mutex
	clients map[string]*client
	hits    uint64
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a per-client limiter. It returns nil, which allows
// everything, when rps or burst is not positive.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: defaultIdleTTL,
		clients: make(map[string]*client),
	}
}

// Allow reports whether key may spend one token at now
func (l *RateLimiter) Allow(key string, now time.Time) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.clients[key]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = cl
	}
	cl.lastSeen = now
	allowed := cl.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.clients {
			if v.lastSeen.Before(cutoff) {
				delete(l.clients, k)
			}
		}
	}

	return allowed
}

// RateLimit rejects requests over the per-client budget with 429
func RateLimit(l *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.Allow(c.ClientIP(), time.Now()) {
			c.Next()
			return
		}

		route := routeOf(c)
		telemetry.RateLimitedTotal.WithLabelValues(route).Inc()
		telemetry.Logger.WarnContext(c.Request.Context(), "rate limit exceeded",
			"client_ip", c.ClientIP(),
			"route", route,
		)
		c.Header("Retry-After", "1")
		c.String(http.StatusTooManyRequests, "Too many requests")
		c.Abort()
	}
}
