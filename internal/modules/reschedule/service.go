package reschedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"slotkeeper/internal/clock"
	"slotkeeper/internal/domain"
	"slotkeeper/internal/notify"
	"slotkeeper/internal/pkg/obs"
	"slotkeeper/internal/scheduling"
)

type Config struct {
	Cutoff   time.Duration
	Timezone string
}

// Service applies customer changes local-first inside a transaction that
// stays open across the remote call, so a remote refusal rolls the row back.
type Service struct {
	bookings  bookingStore
	customers customerStore
	events    eventStore
	scheduler scheduler
	tx        txRunner
	live      statePublisher
	notifier  notifier
	clock     clock.Clock
	cfg       Config
	log       logrus.FieldLogger
}

func NewService(bookings bookingStore, customers customerStore, events eventStore, sched scheduler, tx txRunner, live statePublisher, n notifier, clk clock.Clock, cfg Config, log logrus.FieldLogger) *Service {
	if n == nil {
		n = notify.Nop{}
	}
	return &Service{
		bookings:  bookings,
		customers: customers,
		events:    events,
		scheduler: sched,
		tx:        tx,
		live:      live,
		notifier:  n,
		clock:     clk,
		cfg:       cfg,
		log:       log,
	}
}

// checkWindow rejects changes to terminal bookings and to bookings that start
// within the cutoff. Exactly at the cutoff is already too late.
func (s *Service) checkWindow(b *domain.Booking, now time.Time) error {
	if b.State.IsTerminal() {
		return fmt.Errorf("%w: booking is %s", domain.ErrBookingCancelled, b.State)
	}
	remaining := b.StartAt.Sub(now)
	if remaining <= s.cfg.Cutoff {
		return domain.NewCutoffViolation(remaining, s.cfg.Cutoff)
	}
	return nil
}

func (s *Service) Reschedule(ctx context.Context, remoteID string, req RescheduleRequest) (*domain.Booking, error) {
	ctx, span := obs.Tracer("reschedule").Start(ctx, "Reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("remote_booking_id", remoteID))

	b, err := s.bookings.GetByRemoteID(ctx, remoteID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := s.checkWindow(b, now); err != nil {
		return nil, err
	}

	start := req.Start.UTC()
	end := req.End.UTC()
	if req.End.IsZero() {
		end = start.Add(b.EndAt.Sub(b.StartAt))
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end must be after start", domain.ErrInvalidRequest)
	}
	if !start.After(now) {
		return nil, fmt.Errorf("%w: new time must be in the future", domain.ErrInvalidRequest)
	}

	log := s.log.WithFields(logrus.Fields{"booking_id": b.ID, "remote_booking_id": remoteID})
	stamp := now.UTC().Format(time.RFC3339)

	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		err := s.bookings.Reschedule(txCtx, b.ID, start, end, map[string]any{
			"rescheduled_at":    stamp,
			"previous_start_at": b.StartAt.UTC().Format(time.RFC3339),
			"previous_end_at":   b.EndAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		if err := s.linkCustomer(txCtx, b); err != nil {
			return err
		}
		if err := s.events.Append(txCtx, b.ID, domain.EventRescheduled, map[string]any{
			"from_start": b.StartAt.UTC().Format(time.RFC3339),
			"from_end":   b.EndAt.UTC().Format(time.RFC3339),
			"to_start":   start.Format(time.RFC3339),
			"to_end":     end.Format(time.RFC3339),
		}); err != nil {
			return err
		}

		_, err = s.scheduler.UpdateBooking(txCtx, remoteID, scheduling.UpdateBookingRequest{
			StartsAt:       start,
			EndsAt:         end,
			IgnoreSchedule: true,
			Metadata:       map[string]any{"rescheduled_at": stamp},
		})
		return translate(err)
	})
	if err != nil {
		log.WithError(err).Warn("reschedule rolled back")
		return nil, err
	}

	updated := *b
	updated.StartAt, updated.EndAt = start, end
	s.after(ctx, log, &updated, "reschedule_notice", s.notifier.SendRescheduleNotice, "")
	log.WithFields(logrus.Fields{"start": start, "end": end}).Info("booking rescheduled")
	return &updated, nil
}

// linkCustomer upserts the booking's contact as a Customer and links it. A
// hold that never went through finalize may have no Customer row yet.
func (s *Service) linkCustomer(ctx context.Context, b *domain.Booking) error {
	if strings.TrimSpace(b.ClientEmail) == "" {
		return nil
	}
	first, last := splitName(b.ClientName)
	c, err := s.customers.Upsert(ctx, &domain.Customer{
		Email:     b.ClientEmail,
		FirstName: first,
		LastName:  last,
		Phone:     b.ClientPhone,
	})
	if err != nil {
		return err
	}
	b.CustomerID = &c.ID
	return s.bookings.LinkCustomer(ctx, b.ID, c.ID)
}

func splitName(full string) (string, string) {
	first, last, _ := strings.Cut(strings.TrimSpace(full), " ")
	return first, strings.TrimSpace(last)
}

func (s *Service) Cancel(ctx context.Context, remoteID string, req CancelRequest) (*domain.Booking, error) {
	ctx, span := obs.Tracer("reschedule").Start(ctx, "Cancel")
	defer span.End()
	span.SetAttributes(attribute.String("remote_booking_id", remoteID))

	b, err := s.bookings.GetByRemoteID(ctx, remoteID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := s.checkWindow(b, now); err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{"booking_id": b.ID, "remote_booking_id": remoteID})
	patch := map[string]any{"cancelled_at": now.UTC().Format(time.RFC3339)}
	if req.Reason != "" {
		patch["cancel_reason"] = req.Reason
	}

	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.bookings.Transition(txCtx, b.ID, domain.StateCancelled, patch); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				return fmt.Errorf("%w: %v", domain.ErrBookingCancelled, err)
			}
			return err
		}
		if err := s.events.Append(txCtx, b.ID, domain.EventCancelled, map[string]any{
			"reason":   req.Reason,
			"start_at": b.StartAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
		return translate(s.scheduler.CancelBooking(txCtx, remoteID))
	})
	if err != nil {
		log.WithError(err).Warn("cancellation rolled back")
		return nil, err
	}

	cancelled := *b
	cancelled.State = domain.StateCancelled
	s.after(ctx, log, &cancelled, "cancellation_notice", s.notifier.SendCancellationNotice, req.Reason)
	log.Info("booking cancelled")
	return &cancelled, nil
}

func (s *Service) after(ctx context.Context, log logrus.FieldLogger, b *domain.Booking, step string, send func(context.Context, notify.BookingMessage) error, reason string) {
	if s.live != nil {
		s.live.Publish(b.RemoteBookingID, b.State)
	}

	msg := notify.BookingMessage{
		BookingID:       b.ID,
		RemoteBookingID: b.RemoteBookingID,
		ServiceID:       b.ServiceID,
		CustomerEmail:   b.ClientEmail,
		CustomerName:    b.ClientName,
		StartAt:         b.StartAt,
		EndAt:           b.EndAt,
		Timezone:        s.cfg.Timezone,
		Reason:          reason,
	}
	fields := logrus.Fields{"booking_id": b.ID, "remote_booking_id": b.RemoteBookingID}

	notify.BestEffort(ctx, log, "mirror_event", fields, func(ctx context.Context) error {
		return s.notifier.MirrorEventUpdate(ctx, msg)
	})
	if b.ClientEmail == "" {
		return
	}
	notify.BestEffort(ctx, log, step, fields, func(ctx context.Context) error {
		return send(ctx, msg)
	})
}

// translate rewrites a scheduling refusal into customer-facing text while
// keeping the remote status and body.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var re *domain.RemoteError
	if !errors.As(err, &re) {
		return err
	}
	return &domain.RemoteError{
		Authority: re.Authority,
		Status:    re.Status,
		Message:   scheduling.Message(re),
		Body:      re.Body,
	}
}
