package finalize

import (
	"context"

	"slotkeeper/internal/domain"
	"slotkeeper/internal/notify"
	"slotkeeper/internal/paymentgw"
	"slotkeeper/internal/scheduling"
)

type intentReader interface {
	RetrievePaymentIntent(ctx context.Context, id string) (*paymentgw.Intent, error)
}

type confirmer interface {
	ConfirmBooking(ctx context.Context, id string, metadata map[string]any) (*scheduling.Booking, error)
}

type bookingStore interface {
	GetByRemoteID(ctx context.Context, remoteID string) (*domain.Booking, error)
	CreateIfAbsent(ctx context.Context, b *domain.Booking) (*domain.Booking, bool, error)
	LinkCustomer(ctx context.Context, id, customerID string) error
	Transition(ctx context.Context, id string, to domain.LifecycleState, patch map[string]any) error
}

type customerStore interface {
	Upsert(ctx context.Context, c *domain.Customer) (*domain.Customer, error)
}

type paymentStore interface {
	InsertIfAbsent(ctx context.Context, p *domain.Payment) (bool, error)
}

type eventStore interface {
	Append(ctx context.Context, bookingID string, typ domain.BookingEventType, data map[string]any) error
	CountByType(ctx context.Context, bookingID string, typ domain.BookingEventType) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type tokenIssuer interface {
	GenerateToken(bookingID, remoteBookingID, email string) (string, error)
}

type statePublisher interface {
	Publish(bookingID string, state domain.LifecycleState) int
}

type notifier interface {
	UpsertContact(ctx context.Context, c notify.Contact) error
	SendBookingConfirmation(ctx context.Context, m notify.BookingMessage) error
}
