package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/balance/:address", func(c *gin.Context) {
		c.String(http.StatusOK, c.FullPath())
	})
	return r
}

func get(r http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.RemoteAddr = "203.0.113.7:51234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouteOf_UsesTemplate(t *testing.T) {
	var route string
	r := newTestRouter(func(c *gin.Context) {
		route = routeOf(c)
		c.Next()
	})

	get(r, "/balance/4Nd1mT9C89PxyA2rF5KJbfYyjpTHZf1dbpVqv9d5Dx6z", nil)
	assert.Equal(t, "/balance/:address", route)

	get(r, "/nope", nil)
	assert.Equal(t, unmatchedRoute, route)
}

func TestRequestLogger_AssignsRequestID(t *testing.T) {
	r := newTestRouter(RequestLogger())

	w := get(r, "/balance/abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = get(r, "/balance/abc", http.Header{RequestIDHeader: []string{"req-42"}})
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}

func TestMetricsAndTracing_PassThrough(t *testing.T) {
	r := newTestRouter(Tracing(), Metrics())

	w := get(r, "/balance/abc", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/balance/:address", w.Body.String())
}

func TestRateLimiter_PerClientBudget(t *testing.T) {
	l := NewRateLimiter(1, 2)
	now := time.Now()

	assert.True(t, l.Allow("a", now))
	assert.True(t, l.Allow("a", now))
	assert.False(t, l.Allow("a", now), "burst exhausted")
	assert.True(t, l.Allow("b", now), "other clients have their own bucket")
	assert.True(t, l.Allow("a", now.Add(time.Second)), "refilled after one second")
}

func TestRateLimiter_DisabledWhenNotConfigured(t *testing.T) {
	l := NewRateLimiter(0, 10)
	require.Nil(t, l)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("a", time.Now()))
	}
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	l := NewRateLimiter(10, 10)
	start := time.Now()
	l.Allow("idle", start)

	later := start.Add(2 * defaultIdleTTL)
	for i := 0; i < 512; i++ {
		l.Allow("busy", later)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.clients, "idle")
	assert.Contains(t, l.clients, "busy")
}

func TestRateLimit_Returns429(t *testing.T) {
	r := newTestRouter(RateLimit(NewRateLimiter(0.001, 1)))

	assert.Equal(t, http.StatusOK, get(r, "/balance/abc", nil).Code)

	w := get(r, "/balance/abc", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests", w.Body.String())
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}
