package payment

import (
	"errors"
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

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/intent", h.CreateIntent)
}

// RegisterOperatorRoutes expects rg to be guarded by the internal token.
func (h *Handler) RegisterOperatorRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/:intentId/refund", h.Refund)
	rg.POST("/payments/:intentId/void", h.Void)
}

func (h *Handler) CreateIntent(c *gin.Context) {
	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "INVALID_REQUEST", "Validation failed", errs)
		return
	}

	resp, err := h.service.CreateIntent(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp)
}

func (h *Handler) Refund(c *gin.Context) {
	var req RefundRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
			return
		}
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "INVALID_REQUEST", "Validation failed", errs)
		return
	}

	res, err := h.service.Refund(c.Request.Context(), c.Param("intentId"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) Void(c *gin.Context) {
	res, err := h.service.Void(c.Request.Context(), c.Param("intentId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	if errors.Is(err, ErrPaymentNotFound) {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Payment not found")
		return
	}
	response.FromError(c, err)
}
