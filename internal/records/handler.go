package records

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"photo-speech/internal/shared/server/respond"
	"photo-speech/internal/web"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterPages attaches the HTML homepage.
func (h *Handler) RegisterPages(r gin.IRoutes) {
	r.GET("/", h.homepage)
}

// RegisterRoutes attaches record API routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/records", h.list)
	rg.GET("/records/:key", h.get)
}

func (h *Handler) homepage(c *gin.Context) {
	recs, err := h.Svc.List(c.Request.Context())
	if err != nil {
		respond.Failure(c, http.StatusInternalServerError, err)
		return
	}
	respond.Page(c, web.HomepageTemplate, gin.H{"Records": recs})
}

type listResponse struct {
	Records []Record `json:"records"`
}

func (h *Handler) list(c *gin.Context) {
	recs, err := h.Svc.List(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}
	if recs == nil {
		recs = []Record{}
	}
	respond.OK(c, listResponse{Records: recs})
}

func (h *Handler) get(c *gin.Context) {
	key := c.Param("key")
	rec, err := h.Svc.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "record not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}
	respond.OK(c, rec)
}
