package lookup

import (
	"context"
	"fmt"

	"slotkeeper/internal/domain"
	"slotkeeper/internal/scheduling"
)

type bookingReader interface {
	GetByRemoteID(ctx context.Context, remoteID string) (*domain.Booking, error)
}

type eventReader interface {
	ListByBooking(ctx context.Context, bookingID string) ([]domain.BookingEvent, error)
}

type remoteReader interface {
	ListResources(ctx context.Context, locationID string) ([]scheduling.Resource, error)
	GetProject(ctx context.Context) (*scheduling.Project, error)
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// BookingView is the local mirror of a booking. The scheduling authority
// stays authoritative; HOLDING rows in particular may have expired remotely.
type BookingView struct {
	Booking       *domain.Booking       `json:"booking"`
	Events        []domain.BookingEvent `json:"events"`
	Authoritative bool                  `json:"authoritative"`
}

type Service struct {
	bookings        bookingReader
	events          eventReader
	remote          remoteReader
	store           pinger
	defaultLocation string
}

func NewService(bookings bookingReader, events eventReader, remote remoteReader, store pinger, defaultLocation string) *Service {
	return &Service{
		bookings:        bookings,
		events:          events,
		remote:          remote,
		store:           store,
		defaultLocation: defaultLocation,
	}
}

func (s *Service) Booking(ctx context.Context, remoteID string) (*BookingView, error) {
	b, err := s.bookings.GetByRemoteID(ctx, remoteID)
	if err != nil {
		return nil, err
	}
	events, err := s.events.ListByBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	return &BookingView{Booking: b, Events: events}, nil
}

func (s *Service) Resources(ctx context.Context, locationID string) ([]scheduling.Resource, error) {
	if locationID == "" {
		locationID = s.defaultLocation
	}
	return s.remote.ListResources(ctx, locationID)
}

// Ready checks the store and the scheduling authority.
func (s *Service) Ready(ctx context.Context) map[string]string {
	checks := map[string]string{"store": "ok", "scheduling": "ok"}
	if err := s.store.PingContext(ctx); err != nil {
		checks["store"] = fmt.Sprintf("error: %v", err)
	}
	if _, err := s.remote.GetProject(ctx); err != nil {
		checks["scheduling"] = fmt.Sprintf("error: %v", err)
	}
	return checks
}
