package reschedule

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"slotkeeper/internal/pkg/response"
	"slotkeeper/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the customer change endpoints behind auth, which must
// check the manage token against :remoteId.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	bookings := rg.Group("/bookings/:remoteId", auth)
	{
		bookings.POST("/reschedule", h.Reschedule)
		bookings.POST("/cancel", h.Cancel)
	}
}

func (h *Handler) Reschedule(c *gin.Context) {
	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "INVALID_REQUEST", "Validation failed", errs)
		return
	}

	b, err := h.service.Reschedule(c.Request.Context(), c.Param("remoteId"), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) Cancel(c *gin.Context) {
	var req CancelRequest
	// An empty body cancels without a reason.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "INVALID_REQUEST", "Validation failed", errs)
		return
	}

	b, err := h.service.Cancel(c.Request.Context(), c.Param("remoteId"), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}
