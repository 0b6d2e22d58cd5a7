package payment

import "time"

type CreateIntentRequest struct {
	ServiceID       string    `json:"service_id" validate:"required"`
	RemoteBookingID string    `json:"booking_id"`
	SlotStart       time.Time `json:"slot_start" validate:"required"`
	SlotEnd         time.Time `json:"slot_end" validate:"required"`
	// AmountCents overrides the catalog price (deposits, discounts).
	AmountCents *int64 `json:"amount_cents" validate:"omitempty,gte=0"`
	Email       string `json:"email" validate:"omitempty,email"`
	Name        string `json:"name" validate:"omitempty,max=255"`
}

type CreateIntentResponse struct {
	ClientSecret    string  `json:"client_secret"`
	PaymentIntentID string  `json:"payment_intent_id"`
	AmountCents     int64   `json:"amount_cents"`
	AmountDollars   float64 `json:"amount_dollars"`
}

type RefundRequest struct {
	AmountCents *int64 `json:"amount_cents" validate:"omitempty,gt=0"`
	Reason      string `json:"reason" validate:"omitempty,max=500"`
}

type OperatorResult struct {
	PaymentIntentID string `json:"payment_intent_id"`
	TransactionID   string `json:"transaction_id"`
	Success         bool   `json:"success"`
	Status          string `json:"status"`
	AmountCents     int64  `json:"amount_cents"`
}
