package reschedule

import (
	"context"
	"time"

	"slotkeeper/internal/domain"
	"slotkeeper/internal/notify"
	"slotkeeper/internal/scheduling"
)

type bookingStore interface {
	GetByRemoteID(ctx context.Context, remoteID string) (*domain.Booking, error)
	Reschedule(ctx context.Context, id string, start, end time.Time, patch map[string]any) error
	Transition(ctx context.Context, id string, to domain.LifecycleState, patch map[string]any) error
	LinkCustomer(ctx context.Context, id, customerID string) error
}

type customerStore interface {
	Upsert(ctx context.Context, c *domain.Customer) (*domain.Customer, error)
}

type eventStore interface {
	Append(ctx context.Context, bookingID string, typ domain.BookingEventType, data map[string]any) error
}

type scheduler interface {
	UpdateBooking(ctx context.Context, id string, req scheduling.UpdateBookingRequest) (*scheduling.Booking, error)
	CancelBooking(ctx context.Context, id string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type statePublisher interface {
	Publish(bookingID string, state domain.LifecycleState) int
}

type notifier interface {
	SendRescheduleNotice(ctx context.Context, m notify.BookingMessage) error
	SendCancellationNotice(ctx context.Context, m notify.BookingMessage) error
	MirrorEventUpdate(ctx context.Context, m notify.BookingMessage) error
}
