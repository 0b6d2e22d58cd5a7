package reservation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"slotkeeper/internal/clock"
	"slotkeeper/internal/domain"
	"slotkeeper/internal/pkg/obs"
	"slotkeeper/internal/scheduling"
)

const source = "slotkeeper"

type Service struct {
	catalog   serviceResolver
	scheduler scheduler
	bookings  bookingStore
	clock     clock.Clock
	log       logrus.FieldLogger
}

func NewService(catalog serviceResolver, scheduler scheduler, bookings bookingStore, clk clock.Clock, log logrus.FieldLogger) *Service {
	return &Service{
		catalog:   catalog,
		scheduler: scheduler,
		bookings:  bookings,
		clock:     clk,
		log:       log,
	}
}

// Reserve places a temporary hold with the scheduling authority and mirrors it
// locally. Nothing is written locally unless the hold succeeds; a retried
// request that gets the same remote id back refreshes the existing row.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (*Reservation, error) {
	ctx, span := obs.Tracer("reservation").Start(ctx, "Reserve")
	defer span.End()

	if req.Start.IsZero() {
		return nil, fmt.Errorf("%w: start is required", domain.ErrInvalidRequest)
	}
	if !req.End.IsZero() && !req.End.After(req.Start) {
		return nil, fmt.Errorf("%w: end must be after start", domain.ErrInvalidRequest)
	}

	svc, err := s.catalog.Resolve(req.ServiceID)
	if err != nil {
		return nil, err
	}

	start := req.Start.UTC()
	end := req.End.UTC()
	if req.End.IsZero() {
		if svc.DurationMinutes <= 0 {
			return nil, fmt.Errorf("%w: end is required for %s", domain.ErrInvalidRequest, svc.Slug)
		}
		end = start.Add(time.Duration(svc.DurationMinutes) * time.Minute)
	}

	resourceID := strings.TrimSpace(req.ResourceID)
	if resourceID == "" {
		resourceID = svc.RemoteResourceID
	}

	lockedAt := s.clock.Now().UTC().Format(time.RFC3339)
	hold, err := s.scheduler.CreateTemporaryBooking(ctx, scheduling.CreateBookingRequest{
		ServiceID:  svc.RemoteServiceID,
		LocationID: svc.RemoteLocationID,
		ResourceID: resourceID,
		StartsAt:   start,
		EndsAt:     end,
		Metadata:   map[string]any{"source": source, "lockedAt": lockedAt},
	})
	if err != nil {
		s.log.WithError(err).WithField("service_id", svc.ID).Warn("temporary hold failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("remote_booking_id", hold.ID))

	if !hold.StartsAt.IsZero() {
		start = hold.StartsAt.UTC()
	}
	if !hold.EndsAt.IsZero() {
		end = hold.EndsAt.UTC()
	}

	b := &domain.Booking{
		RemoteBookingID: hold.ID,
		ServiceID:       serviceKey(svc.ID, svc.Slug),
		StartAt:         start,
		EndAt:           end,
		ClientName:      strings.TrimSpace(req.Customer.Name),
		ClientEmail:     strings.ToLower(strings.TrimSpace(req.Customer.Email)),
		ClientPhone:     strings.TrimSpace(req.Customer.Phone),
		State:           domain.StateHolding,
		Metadata: map[string]any{
			"source":             source,
			"locked_at":          lockedAt,
			"service_slug":       svc.Slug,
			"remote_service_id":  svc.RemoteServiceID,
			"remote_location_id": svc.RemoteLocationID,
			"slot": map[string]any{
				"start": start.Format(time.RFC3339),
				"end":   end.Format(time.RFC3339),
			},
		},
	}
	if resourceID != "" {
		b.ResourceID = &resourceID
	}

	stored, err := s.bookings.UpsertHold(ctx, b)
	if err != nil {
		s.log.WithError(err).WithField("remote_booking_id", hold.ID).Error("hold placed but local write failed")
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id":        stored.ID,
		"remote_booking_id": stored.RemoteBookingID,
		"service_id":        stored.ServiceID,
	}).Info("slot held")

	return &Reservation{
		BookingID:       stored.ID,
		RemoteBookingID: stored.RemoteBookingID,
		Start:           stored.StartAt,
		End:             stored.EndAt,
		IsTemporary:     true,
	}, nil
}

func serviceKey(id, slug string) string {
	if id != "" {
		return id
	}
	return slug
}
