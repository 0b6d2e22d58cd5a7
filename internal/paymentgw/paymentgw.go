// Package paymentgw adapts the payment authority behind a small interface.
package paymentgw

import (
	"context"
	"strings"
)

const (
	StatusSucceeded       = "succeeded"
	StatusProcessing      = "processing"
	StatusRequiresCapture = "requires_capture"
	StatusCanceled        = "canceled"
)

type Intent struct {
	ID             string
	ClientSecret   string
	Status         string
	AmountCents    int64
	Currency       string
	LatestChargeID string
	Metadata       map[string]string
}

type CreateIntentRequest struct {
	AmountCents  int64
	Currency     string
	ReceiptEmail string
	Metadata     map[string]string
}

type RefundResult struct {
	Success       bool
	TransactionID string
	AmountCents   int64
	Status        string
}

type Authority interface {
	CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*Intent, error)
	// Refund returns money for a captured intent. A nil amount refunds in full.
	Refund(ctx context.Context, paymentIntentID string, amountCents *int64) (*RefundResult, error)
	// Void releases an authorization that was never captured.
	Void(ctx context.Context, paymentIntentID string) (*RefundResult, error)
}

// IsChargeable reports whether an intent status allows the booking to be finalized.
func IsChargeable(status string) bool {
	switch strings.ToLower(status) {
	case StatusSucceeded, StatusProcessing, StatusRequiresCapture:
		return true
	}
	return false
}
