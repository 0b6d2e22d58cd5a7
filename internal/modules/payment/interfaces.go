package payment

import (
	"context"

	"slotkeeper/internal/catalog"
	"slotkeeper/internal/domain"
	"slotkeeper/internal/paymentgw"
)

type serviceResolver interface {
	Resolve(ref string) (catalog.Service, error)
}

type authority interface {
	CreatePaymentIntent(ctx context.Context, req paymentgw.CreateIntentRequest) (*paymentgw.Intent, error)
	Refund(ctx context.Context, paymentIntentID string, amountCents *int64) (*paymentgw.RefundResult, error)
	Void(ctx context.Context, paymentIntentID string) (*paymentgw.RefundResult, error)
}

type bookingIntentWriter interface {
	SetPaymentIntent(ctx context.Context, remoteID, paymentIntentID string) error
}

type paymentRepo interface {
	GetByExternalID(ctx context.Context, externalID string) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, externalID string, status domain.PaymentRecordStatus) error
}

type eventAppender interface {
	Append(ctx context.Context, bookingID string, typ domain.BookingEventType, data map[string]any) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
