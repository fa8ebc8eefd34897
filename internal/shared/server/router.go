package server

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"photo-speech/internal/photos"
	"photo-speech/internal/records"
	"photo-speech/internal/services/health"
	"photo-speech/internal/shared/config"
	"photo-speech/internal/shared/metrics"
	"photo-speech/internal/shared/server/middleware"
	"photo-speech/internal/shared/server/respond"
	"photo-speech/internal/shared/storage/object"
	"photo-speech/internal/web"
)

const uploadRateGroup = "UPLOAD"

// Deps are the handlers and stores the router mounts.
type Deps struct {
	Config  config.Config
	Photos  *photos.Handler
	Records *records.Handler
	Health  *health.Service
	// Media serves objects under /media for backends without native public URLs. Nil disables the route.
	Media object.ObjectStore
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.SetHTMLTemplate(web.Templates())

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		metrics.Middleware(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	uploadLimit := middleware.RateLimit(middleware.RateLimitConfig{
		DefaultGroup: uploadRateGroup,
		Rules: map[string]middleware.RateLimitRule{
			uploadRateGroup: {Rate: cfg.UploadRatePerSec, Burst: cfg.UploadRateBurst},
		},
	})

	if deps.Records != nil {
		deps.Records.RegisterPages(r)
	}
	if deps.Photos != nil {
		deps.Photos.RegisterPages(r, uploadLimit)
	}
	if deps.Media != nil {
		r.GET("/media/*name", mediaHandler(deps.Media))
	}
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		report := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
	if deps.Records != nil {
		deps.Records.RegisterRoutes(api)
	}

	return r
}

func mediaHandler(store object.ObjectStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimPrefix(c.Param("name"), "/")
		if !object.ValidName(name) {
			respond.Failure(c, http.StatusNotFound, object.ErrNotFound)
			return
		}
		rc, err := store.Open(c.Request.Context(), name)
		if err != nil {
			if errors.Is(err, object.ErrNotFound) {
				respond.Failure(c, http.StatusNotFound, err)
				return
			}
			respond.Failure(c, http.StatusInternalServerError, err)
			return
		}
		defer rc.Close()

		contentType, inline := mediaType(rc.ContentType)
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Cache-Control", "public, max-age=300")
		if !inline {
			c.Header("Content-Disposition", "attachment")
		}
		c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
	}
}

// mediaType maps a stored content type to the served one. Only images, audio and PDF
// render inline; everything else, SVG included, is downloaded as octet-stream.
func mediaType(stored string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(stored)
	if err != nil {
		return "application/octet-stream", false
	}
	switch {
	case mediaType == "image/svg+xml":
		return "application/octet-stream", false
	case strings.HasPrefix(mediaType, "image/"), strings.HasPrefix(mediaType, "audio/"), mediaType == "application/pdf":
		return mediaType, true
	default:
		return "application/octet-stream", false
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
