package photos

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"photo-speech/internal/shared/server/middleware"
	"photo-speech/internal/shared/server/respond"
	"photo-speech/internal/web"
)

// multipartOverhead allows for form boundaries and headers around the file part.
const multipartOverhead = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterPages attaches the upload form and the upload endpoint. Extra handlers such as
// rate limiting run before the upload endpoint only.
func (h *Handler) RegisterPages(r gin.IRoutes, uploadMiddleware ...gin.HandlerFunc) {
	r.GET("/upload_photo", h.form)
	handlers := append([]gin.HandlerFunc{}, uploadMiddleware...)
	r.POST("/upload_photo", append(handlers, h.upload)...)
}

func (h *Handler) form(c *gin.Context) {
	respond.Page(c, web.UploadTemplate, gin.H{"MaxUploadMiB": h.Svc.MaxBytes >> 20})
}

func (h *Handler) upload(c *gin.Context) {
	if h.Svc.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Svc.MaxBytes+multipartOverhead)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Failure(c, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
			return
		}
		respond.Failure(c, http.StatusBadRequest, ErrMissingFile)
		return
	}
	if h.Svc.MaxBytes > 0 && fileHeader.Size > h.Svc.MaxBytes {
		respond.Failure(c, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Failure(c, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Failure(c, http.StatusBadRequest, err)
		return
	}

	rec, err := h.Svc.Process(c.Request.Context(), Upload{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		respond.Failure(c, statusFor(err), err)
		return
	}

	c.Set(middleware.RecordKeyContextKey, rec.Key)
	c.Header("X-Record-Key", rec.Key)
	c.Redirect(http.StatusFound, "/")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrMissingFile), errors.Is(err, ErrEmptyFile), errors.Is(err, ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}
