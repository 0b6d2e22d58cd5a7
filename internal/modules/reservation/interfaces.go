package reservation

import (
	"context"

	"slotkeeper/internal/catalog"
	"slotkeeper/internal/domain"
	"slotkeeper/internal/scheduling"
)

type serviceResolver interface {
	Resolve(ref string) (catalog.Service, error)
}

type scheduler interface {
	CreateTemporaryBooking(ctx context.Context, req scheduling.CreateBookingRequest) (*scheduling.Booking, error)
}

type bookingStore interface {
	UpsertHold(ctx context.Context, b *domain.Booking) (*domain.Booking, error)
}
