package finalize

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
	"slotkeeper/internal/modules/payment"
	"slotkeeper/internal/notify"
	"slotkeeper/internal/paymentgw"
	"slotkeeper/internal/pkg/obs"
)

type Deps struct {
	Intents   intentReader
	Scheduler confirmer
	Bookings  bookingStore
	Customers customerStore
	Payments  paymentStore
	Events    eventStore
	Tx        txRunner
	Tokens    tokenIssuer
	Live      statePublisher
	Notifier  notifier
	Clock     clock.Clock
	Log       logrus.FieldLogger
	Timezone  string
}

// Service converts a paid hold into a confirmed booking. The steps run as a
// retryable saga: local writes first, then the remote confirm, then side
// channels. Re-running with the same payment intent is safe at every point.
type Service struct {
	Deps
}

func NewService(d Deps) *Service {
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	return &Service{Deps: d}
}

func (s *Service) Finalize(ctx context.Context, req FinalizeRequest) (*FinalizeResult, error) {
	ctx, span := obs.Tracer("finalize").Start(ctx, "Finalize")
	defer span.End()

	piID := strings.TrimSpace(req.PaymentIntentID)
	if piID == "" {
		return nil, fmt.Errorf("%w: payment_intent_id is required", domain.ErrInvalidRequest)
	}
	span.SetAttributes(attribute.String("payment_intent_id", piID))

	// 1. The payment must be chargeable before anything else is touched.
	intent, err := s.Intents.RetrievePaymentIntent(ctx, piID)
	if err != nil {
		return nil, err
	}
	if !paymentgw.IsChargeable(intent.Status) {
		return nil, fmt.Errorf("%w: status %s", domain.ErrPaymentNotChargeable, intent.Status)
	}

	remoteID := strings.TrimSpace(req.RemoteBookingID)
	metaRemoteID := intent.Metadata[payment.MetaRemoteBookingID]
	if remoteID == "" {
		remoteID = metaRemoteID
	}
	if remoteID == "" {
		return nil, fmt.Errorf("%w: booking id is unknown for %s", domain.ErrInvalidRequest, piID)
	}
	if metaRemoteID != "" && metaRemoteID != remoteID {
		return nil, fmt.Errorf("%w: payment intent belongs to another booking", domain.ErrInvalidRequest)
	}
	log := s.Log.WithFields(logrus.Fields{"remote_booking_id": remoteID, "payment_intent_id": piID})

	// 2. Find the local row, rebuilding it from intent metadata if it was lost.
	booking, healed, err := s.loadOrHeal(ctx, remoteID, intent)
	if err != nil {
		return nil, err
	}
	if booking.State.IsTerminal() {
		return nil, fmt.Errorf("%w: booking is %s", domain.ErrBookingCancelled, booking.State)
	}
	if healed {
		log.WithField("booking_id", booking.ID).Warn("booking row rebuilt from payment metadata")
	}

	// 3 + 4. Customer, payment record and finalized event, all local.
	email := booking.ClientEmail
	if email == "" {
		email = intent.Metadata[payment.MetaCustomerEmail]
	}
	name := booking.ClientName
	if name == "" {
		name = intent.Metadata[payment.MetaCustomerName]
	}

	var customer *domain.Customer
	var inserted bool
	err = s.Tx.WithTx(ctx, func(txCtx context.Context) error {
		if email != "" {
			first, last := splitName(name)
			c, err := s.Customers.Upsert(txCtx, &domain.Customer{
				Email:     email,
				FirstName: first,
				LastName:  last,
				Phone:     booking.ClientPhone,
			})
			if err != nil {
				return err
			}
			customer = c
			if err := s.Bookings.LinkCustomer(txCtx, booking.ID, c.ID); err != nil {
				return err
			}
		}

		var err error
		inserted, err = s.Payments.InsertIfAbsent(txCtx, &domain.Payment{
			BookingID:             booking.ID,
			ExternalTransactionID: intent.ID,
			AmountCents:           intent.AmountCents,
			Currency:              intent.Currency,
			Status:                domain.PaymentRecordStatus(intent.Status),
		})
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		return s.Events.Append(txCtx, booking.ID, domain.EventFinalized, map[string]any{
			"payment_intent_id": intent.ID,
			"amount_cents":      intent.AmountCents,
			"currency":          intent.Currency,
			"payment_status":    intent.Status,
			"latest_charge_id":  intent.LatestChargeID,
			"self_healed":       healed,
		})
	})
	if err != nil {
		log.WithError(err).Error("local finalization failed")
		return nil, err
	}
	if email == "" {
		log.Warn("no customer email; customer record skipped")
	}

	// 5. Remote confirm. A booking already confirmed locally was confirmed
	// remotely first, so the call is only repeated for rows still pending.
	now := s.Clock.Now().UTC()
	alreadyConfirmed := booking.State == domain.StateConfirmed || booking.State == domain.StateUpdated
	if !alreadyConfirmed {
		_, err := s.Scheduler.ConfirmBooking(ctx, remoteID, map[string]any{
			"payment_intent_id": intent.ID,
			"payment_status":    intent.Status,
			"finalized_at":      now.Format(time.RFC3339),
		})
		if err != nil {
			log.WithError(err).Error("paid but not confirmed remotely; retry finalize or resolve manually")
			return nil, err
		}

		// 6. Local state follows the remote confirm.
		err = s.Bookings.Transition(ctx, booking.ID, domain.StateConfirmed, map[string]any{
			"finalized_at":      now.Format(time.RFC3339),
			"payment_intent_id": intent.ID,
		})
		switch {
		case errors.Is(err, domain.ErrInvalidTransition):
			// A cancellation webhook won the race; the remote record is authoritative.
			log.WithError(err).Warn("booking changed state during finalization")
		case err != nil:
			return nil, err
		default:
			s.publish(remoteID, domain.StateConfirmed)
		}
	}

	booking, err = s.Bookings.GetByRemoteID(ctx, remoteID)
	if err != nil {
		return nil, err
	}

	token, err := s.Tokens.GenerateToken(booking.ID, booking.RemoteBookingID, email)
	if err != nil {
		return nil, fmt.Errorf("issue manage token: %w", err)
	}

	// 7. Side channels. Failures are logged and never surface.
	s.sideChannels(ctx, log, booking, customer, email, name, token)

	log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"state":      booking.State,
		"inserted":   inserted,
	}).Info("booking finalized")

	return &FinalizeResult{
		Booking:          booking,
		ManageToken:      token,
		AlreadyFinalized: !inserted,
		SelfHealed:       healed,
	}, nil
}

func (s *Service) loadOrHeal(ctx context.Context, remoteID string, intent *paymentgw.Intent) (*domain.Booking, bool, error) {
	b, err := s.Bookings.GetByRemoteID(ctx, remoteID)
	if err == nil {
		return b, false, nil
	}
	if !errors.Is(err, domain.ErrBookingNotFound) {
		return nil, false, err
	}

	rebuilt, err := bookingFromMetadata(remoteID, intent)
	if err != nil {
		return nil, false, err
	}
	stored, created, err := s.Bookings.CreateIfAbsent(ctx, rebuilt)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// bookingFromMetadata rebuilds the minimal row a reservation would have written.
func bookingFromMetadata(remoteID string, intent *paymentgw.Intent) (*domain.Booking, error) {
	md := intent.Metadata
	start, err1 := time.Parse(time.RFC3339, md[payment.MetaSlotStart])
	end, err2 := time.Parse(time.RFC3339, md[payment.MetaSlotEnd])
	serviceID := md[payment.MetaServiceID]
	if serviceID == "" {
		serviceID = md[payment.MetaServiceSlug]
	}
	if err1 != nil || err2 != nil || serviceID == "" || !end.After(start) {
		return nil, fmt.Errorf("%w: no local row and payment metadata is incomplete", domain.ErrBookingNotFound)
	}

	piID := intent.ID
	return &domain.Booking{
		RemoteBookingID: remoteID,
		ServiceID:       serviceID,
		StartAt:         start.UTC(),
		EndAt:           end.UTC(),
		ClientName:      md[payment.MetaCustomerName],
		ClientEmail:     strings.ToLower(md[payment.MetaCustomerEmail]),
		State:           domain.StateHolding,
		PaymentIntentID: &piID,
		Metadata: map[string]any{
			"source":            "payment_metadata",
			"service_slug":      md[payment.MetaServiceSlug],
			"remote_service_id": md[payment.MetaRemoteServiceID],
			"timezone":          md[payment.MetaTimezone],
		},
	}, nil
}

func (s *Service) sideChannels(ctx context.Context, log logrus.FieldLogger, b *domain.Booking, c *domain.Customer, email, name, token string) {
	fields := logrus.Fields{"booking_id": b.ID, "remote_booking_id": b.RemoteBookingID}

	if c != nil {
		notify.BestEffort(ctx, log, "contact_upsert", fields, func(ctx context.Context) error {
			return s.Notifier.UpsertContact(ctx, notify.Contact{
				Email:     c.Email,
				FirstName: c.FirstName,
				LastName:  c.LastName,
				Phone:     c.Phone,
			})
		})
	}

	if email == "" {
		return
	}
	sent, err := s.Events.CountByType(ctx, b.ID, domain.EventEmailSent)
	if err != nil || sent > 0 {
		return
	}
	ok := notify.BestEffort(ctx, log, "confirmation_email", fields, func(ctx context.Context) error {
		return s.Notifier.SendBookingConfirmation(ctx, notify.BookingMessage{
			BookingID:       b.ID,
			RemoteBookingID: b.RemoteBookingID,
			ServiceID:       b.ServiceID,
			CustomerEmail:   email,
			CustomerName:    name,
			StartAt:         b.StartAt,
			EndAt:           b.EndAt,
			Timezone:        s.Timezone,
			ManageToken:     token,
		})
	})
	if !ok {
		return
	}
	notify.BestEffort(ctx, log, "email_sent_event", fields, func(ctx context.Context) error {
		return s.Events.Append(ctx, b.ID, domain.EventEmailSent, map[string]any{
			"kind": "booking_confirmed",
			"to":   email,
		})
	})
}

func (s *Service) publish(remoteID string, state domain.LifecycleState) {
	if s.Live != nil {
		s.Live.Publish(remoteID, state)
	}
}

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	first, last, _ := strings.Cut(full, " ")
	return first, strings.TrimSpace(last)
}
