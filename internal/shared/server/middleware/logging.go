package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"photo-speech/internal/shared/telemetry"
)

// RecordKeyContextKey is set by handlers that touch a record so the request log can carry it.
const RecordKeyContextKey = "recordKey"

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		telemetry.Info("request.complete", map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"bytes_out":   c.Writer.Size(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"record_key":  c.GetString(RecordKeyContextKey),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		})
	}
}
