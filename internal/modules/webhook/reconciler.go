package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"slotkeeper/internal/clock"
	"slotkeeper/internal/domain"
	"slotkeeper/internal/pkg/obs"
	"slotkeeper/internal/scheduling"
)

type Outcome string

const (
	OutcomePing     Outcome = "ping"
	OutcomeIgnored  Outcome = "ignored"
	OutcomeMiss     Outcome = "reconciliation_miss"
	OutcomeApplied  Outcome = "applied"
	OutcomeOverlaid Outcome = "overlaid"
)

// Reconciler folds scheduling events into the local mirror. Every event
// overlays metadata; the lifecycle column only moves along allowed edges, so
// duplicate and reordered deliveries converge.
type Reconciler struct {
	bookings bookingStore
	live     statePublisher
	clock    clock.Clock
	log      logrus.FieldLogger
}

func NewReconciler(bookings bookingStore, live statePublisher, clk clock.Clock, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{bookings: bookings, live: live, clock: clk, log: log}
}

// targetState maps an event to the lifecycle state it asks for.
func targetState(ev scheduling.Event) (domain.LifecycleState, scheduling.BookingData, bool) {
	switch e := ev.(type) {
	case scheduling.BookingCanceled:
		return domain.StateCancelled, e.Booking, true
	case scheduling.BookingConfirmed:
		return domain.StateConfirmed, e.Booking, true
	case scheduling.BookingCreated:
		return domain.StateCreated, e.Booking, true
	case scheduling.BookingUpdated:
		if st, ok := domain.StateFromRemote(e.Booking.Status); ok {
			return st, e.Booking, true
		}
		return domain.StateUpdated, e.Booking, true
	}
	return "", scheduling.BookingData{}, false
}

func (r *Reconciler) Apply(ctx context.Context, ev scheduling.Event) (Outcome, error) {
	ctx, span := obs.Tracer("webhook").Start(ctx, "Reconcile")
	defer span.End()
	span.SetAttributes(attribute.String("event_type", ev.Type()))

	if _, ok := ev.(scheduling.PingEvent); ok {
		return OutcomePing, nil
	}
	to, data, ok := targetState(ev)
	if !ok {
		r.log.WithField("event_type", ev.Type()).Info("webhook event type not handled")
		return OutcomeIgnored, nil
	}

	log := r.log.WithFields(logrus.Fields{"event_type": ev.Type(), "remote_booking_id": data.ID})
	booking, err := r.bookings.GetByRemoteID(ctx, data.ID)
	if errors.Is(err, domain.ErrBookingNotFound) {
		log.Info("webhook for unknown booking acknowledged")
		return OutcomeMiss, nil
	}
	if err != nil {
		return "", err
	}

	patch := eventPatch(ev.Type(), data, r.clock.Now())

	upd, isUpdate := ev.(scheduling.BookingUpdated)
	if isUpdate && !booking.State.IsTerminal() && upd.Booking.StartsAt != nil && upd.Booking.EndsAt != nil {
		if err := r.bookings.UpdateSlot(ctx, booking.ID, *upd.Booking.StartsAt, *upd.Booking.EndsAt); err != nil {
			return "", err
		}
	}

	err = r.bookings.Transition(ctx, booking.ID, to, patch)
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		log.WithFields(logrus.Fields{"from": booking.State, "to": to}).Info("stale webhook transition; metadata overlaid only")
		if err := r.bookings.OverlayMetadata(ctx, booking.ID, patch); err != nil {
			return "", err
		}
		return OutcomeOverlaid, nil
	case err != nil:
		return "", err
	}

	if booking.State != to && r.live != nil {
		r.live.Publish(booking.RemoteBookingID, to)
	}
	log.WithFields(logrus.Fields{"from": booking.State, "to": to}).Info("webhook applied")
	return OutcomeApplied, nil
}

func eventPatch(eventType string, data scheduling.BookingData, now time.Time) map[string]any {
	patch := map[string]any{
		"last_event_at":   now.UTC().Format(time.RFC3339),
		"last_event_type": eventType,
	}
	if data.Status != "" {
		patch["remote_status"] = data.Status
	}
	for k, v := range data.Raw {
		if k == "id" || v == nil {
			continue
		}
		patch["remote_"+k] = v
	}
	return patch
}
