package lookup

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"slotkeeper/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	rg.GET("/resources", h.Resources)
	rg.GET("/bookings/:remoteId", auth, h.Booking)
}

// RegisterProbes mounts /health and /ready outside the API prefix.
func (h *Handler) RegisterProbes(r gin.IRoutes) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", h.Ready)
}

func (h *Handler) Booking(c *gin.Context) {
	view, err := h.service.Booking(c.Request.Context(), c.Param("remoteId"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

func (h *Handler) Resources(c *gin.Context) {
	resources, err := h.service.Resources(c.Request.Context(), c.Query("location"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"resources": resources})
}

func (h *Handler) Ready(c *gin.Context) {
	checks := h.service.Ready(c.Request.Context())
	status := http.StatusOK
	for _, v := range checks {
		if strings.HasPrefix(v, "error") {
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
}
