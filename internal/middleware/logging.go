package middleware

import (
	"time"

	"github.com/ghaleb-d/sol-transfer/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// RequestLogger tags every request with an id and logs one line when it completes.
// An incoming X-Request-ID is reused so ids can be correlated across services.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.Must(uuid.NewV7()).String()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(telemetry.WithRequestID(c.Request.Context(), id))

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"route", routeOf(c),
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			telemetry.Logger.ErrorContext(ctx, "request completed", attrs...)
		case status >= 400:
			telemetry.Logger.WarnContext(ctx, "request completed", attrs...)
		default:
			telemetry.Logger.InfoContext(ctx, "request completed", attrs...)
		}
	}
}
