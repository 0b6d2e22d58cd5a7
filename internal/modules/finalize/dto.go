package finalize

import "slotkeeper/internal/domain"

type FinalizeRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
	// RemoteBookingID may be omitted; the intent metadata names the booking.
	RemoteBookingID string `json:"booking_id"`
}

type FinalizeResult struct {
	Booking          *domain.Booking `json:"booking"`
	ManageToken      string          `json:"manage_token"`
	AlreadyFinalized bool            `json:"already_finalized"`
	SelfHealed       bool            `json:"self_healed"`
}
