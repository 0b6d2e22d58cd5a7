package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"slotkeeper/internal/domain"
)

// FromError writes the envelope for a domain error and returns the status used.
func FromError(c *gin.Context, err error) int {
	var remote *domain.RemoteError
	var cutoff *domain.CutoffViolation

	switch {
	case errors.As(err, &cutoff):
		ErrorWithDetails(c, http.StatusConflict, "CUTOFF_VIOLATION", cutoff.Error(), gin.H{
			"hours_remaining": cutoff.HoursRemaining,
			"cutoff_hours":    cutoff.Cutoff.Hours(),
		})
		return http.StatusConflict
	case errors.As(err, &remote):
		// 4xx passes through as-is. An upstream 5xx or transport failure is
		// our gateway failing, so it becomes 502 and the authority's own
		// status travels in details.remote_status.
		status := remote.Status
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		ErrorWithDetails(c, status, "REMOTE_AUTHORITY_ERROR", remote.Message, gin.H{
			"authority":     remote.Authority,
			"remote_status": remote.Status,
			"body":          remote.Body,
		})
		return status
	case errors.Is(err, domain.ErrInvalidRequest):
		Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAmountTooLow):
		Error(c, http.StatusUnprocessableEntity, "AMOUNT_TOO_LOW", err.Error())
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSignatureInvalid):
		Error(c, http.StatusUnauthorized, "SIGNATURE_INVALID", "Invalid signature")
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrPaymentNotChargeable):
		Error(c, http.StatusPaymentRequired, "PAYMENT_NOT_CHARGEABLE", err.Error())
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrBookingNotFound):
		Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBookingCancelled), errors.Is(err, domain.ErrInvalidTransition):
		Error(c, http.StatusConflict, "BOOKING_STATE_CONFLICT", err.Error())
		return http.StatusConflict
	}
	Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
	return http.StatusInternalServerError
}
