package respond

import (
	"fmt"
	"html"
	"net/http"

	"github.com/gin-gonic/gin"

	"photo-speech/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized JSON error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	logError(c, status, code, message)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Failure sends an HTML error page embedding the escaped error text.
func Failure(c *gin.Context, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	logError(c, status, codeFor(status), msg)

	body := fmt.Sprintf("\n    An internal error occurred: <pre>%s</pre>\n    See logs for full stacktrace.\n    ", html.EscapeString(msg))
	if status < http.StatusInternalServerError {
		body = fmt.Sprintf("<p>%s</p><pre>%s</pre><p><a href=\"/upload_photo\">Try again</a></p>", html.EscapeString(http.StatusText(status)), html.EscapeString(msg))
	}
	c.Abort()
	c.Data(status, "text/html; charset=utf-8", []byte(body))
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusRequestEntityTooLarge:
		return "file_too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "internal_error"
	}
}

func logError(c *gin.Context, status int, code, message string) {
	telemetry.Error("http.error", map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	})
}
