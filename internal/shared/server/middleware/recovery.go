package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"photo-speech/internal/shared/server/respond"
	"photo-speech/internal/shared/telemetry"
)

// Recovery recovers from panics. API routes get the JSON error body, pages get the HTML error page.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				reqID := RequestIDFromContext(c)
				telemetry.Error("panic", map[string]any{
					"request_id": reqID,
					"error":      rec,
					"stack":      string(debug.Stack()),
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
				})
				if strings.HasPrefix(c.Request.URL.Path, "/api/") {
					respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
					return
				}
				respond.Failure(c, http.StatusInternalServerError, fmt.Errorf("panic: %v", rec))
			}
		}()
		c.Next()
	}
}
