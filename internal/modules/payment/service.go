package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"slotkeeper/internal/domain"
	"slotkeeper/internal/paymentgw"
	"slotkeeper/internal/pkg/obs"
)

// Metadata keys written on every payment intent. Together they are enough to
// rebuild a booking row if the local store lost it.
const (
	MetaServiceID       = "service_id"
	MetaServiceSlug     = "service_slug"
	MetaRemoteServiceID = "remote_service_id"
	MetaSlotStart       = "slot_start"
	MetaSlotEnd         = "slot_end"
	MetaTimezone        = "timezone"
	MetaRemoteBookingID = "hapio_booking_id"
	MetaCustomerEmail   = "customer_email"
	MetaCustomerName    = "customer_name"
)

type Config struct {
	Currency string
	MinCents int64
	Timezone string
}

type Service struct {
	catalog   serviceResolver
	authority authority
	bookings  bookingIntentWriter
	payments  paymentRepo
	events    eventAppender
	tx        txRunner
	cfg       Config
	log       logrus.FieldLogger
}

func NewService(catalog serviceResolver, authority authority, bookings bookingIntentWriter, payments paymentRepo, events eventAppender, tx txRunner, cfg Config, log logrus.FieldLogger) *Service {
	if cfg.MinCents <= 0 {
		cfg.MinCents = 50
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Service{
		catalog:   catalog,
		authority: authority,
		bookings:  bookings,
		payments:  payments,
		events:    events,
		tx:        tx,
		cfg:       cfg,
		log:       log,
	}
}

// CreateIntent opens a payment authorization for a held slot. The amount is
// the explicit amount when given, otherwise the catalog price.
func (s *Service) CreateIntent(ctx context.Context, req CreateIntentRequest) (*CreateIntentResponse, error) {
	ctx, span := obs.Tracer("payment").Start(ctx, "CreateIntent")
	defer span.End()

	if !req.SlotEnd.After(req.SlotStart) {
		return nil, fmt.Errorf("%w: slot_end must be after slot_start", domain.ErrInvalidRequest)
	}
	svc, err := s.catalog.Resolve(req.ServiceID)
	if err != nil {
		return nil, err
	}

	amount := svc.PriceCents()
	if req.AmountCents != nil {
		amount = *req.AmountCents
	}
	if amount < s.cfg.MinCents {
		return nil, fmt.Errorf("%w: %d < %d cents", domain.ErrAmountTooLow, amount, s.cfg.MinCents)
	}

	meta := map[string]string{
		MetaServiceID:       svc.ID,
		MetaServiceSlug:     svc.Slug,
		MetaRemoteServiceID: svc.RemoteServiceID,
		MetaSlotStart:       req.SlotStart.UTC().Format(time.RFC3339),
		MetaSlotEnd:         req.SlotEnd.UTC().Format(time.RFC3339),
		MetaTimezone:        s.cfg.Timezone,
		MetaRemoteBookingID: req.RemoteBookingID,
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != "" {
		meta[MetaCustomerEmail] = email
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		meta[MetaCustomerName] = name
	}

	intent, err := s.authority.CreatePaymentIntent(ctx, paymentgw.CreateIntentRequest{
		AmountCents:  amount,
		Currency:     s.cfg.Currency,
		ReceiptEmail: email,
		Metadata:     meta,
	})
	if err != nil {
		s.log.WithError(err).WithField("service_id", svc.ID).Warn("create payment intent failed")
		return nil, err
	}

	if req.RemoteBookingID != "" {
		if err := s.bookings.SetPaymentIntent(ctx, req.RemoteBookingID, intent.ID); err != nil {
			// Finalization rebuilds the link from intent metadata.
			s.log.WithError(err).WithFields(logrus.Fields{
				"remote_booking_id": req.RemoteBookingID,
				"payment_intent_id": intent.ID,
			}).Warn("could not attach payment intent to booking")
		}
	}

	s.log.WithFields(logrus.Fields{
		"payment_intent_id": intent.ID,
		"remote_booking_id": req.RemoteBookingID,
		"amount_cents":      amount,
	}).Info("payment intent created")

	return &CreateIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		AmountCents:     amount,
		AmountDollars:   float64(amount) / 100,
	}, nil
}

// Refund is an operator action and is never triggered automatically.
func (s *Service) Refund(ctx context.Context, paymentIntentID string, req RefundRequest) (*OperatorResult, error) {
	p, err := s.recorded(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}

	res, err := s.authority.Refund(ctx, paymentIntentID, req.AmountCents)
	if err != nil {
		return nil, err
	}

	status := domain.PaymentRecordRefunded
	if req.AmountCents != nil && *req.AmountCents < p.AmountCents {
		status = domain.PaymentRecordPartialRefund
	}
	data := map[string]any{
		"payment_intent_id": paymentIntentID,
		"refund_id":         res.TransactionID,
		"amount_cents":      res.AmountCents,
		"status":            res.Status,
		"reason":            req.Reason,
	}
	if err := s.record(ctx, p, status, domain.EventRefunded, data); err != nil {
		return nil, err
	}

	return &OperatorResult{
		PaymentIntentID: paymentIntentID,
		TransactionID:   res.TransactionID,
		Success:         res.Success,
		Status:          string(status),
		AmountCents:     res.AmountCents,
	}, nil
}

// Void releases an uncaptured authorization.
func (s *Service) Void(ctx context.Context, paymentIntentID string) (*OperatorResult, error) {
	p, err := s.recorded(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}

	res, err := s.authority.Void(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"payment_intent_id": paymentIntentID,
		"amount_cents":      res.AmountCents,
		"status":            res.Status,
	}
	if err := s.record(ctx, p, domain.PaymentRecordVoided, domain.EventVoided, data); err != nil {
		return nil, err
	}

	return &OperatorResult{
		PaymentIntentID: paymentIntentID,
		TransactionID:   res.TransactionID,
		Success:         res.Success,
		Status:          string(domain.PaymentRecordVoided),
		AmountCents:     res.AmountCents,
	}, nil
}

func (s *Service) recorded(ctx context.Context, paymentIntentID string) (*domain.Payment, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return nil, fmt.Errorf("%w: payment intent id is required", domain.ErrInvalidRequest)
	}
	p, err := s.payments.GetByExternalID(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

// record stores the outcome of an operator action already accepted by the
// payment authority. A failure here leaves the money moved but unrecorded.
func (s *Service) record(ctx context.Context, p *domain.Payment, status domain.PaymentRecordStatus, typ domain.BookingEventType, data map[string]any) error {
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.payments.UpdateStatus(txCtx, p.ExternalTransactionID, status); err != nil {
			return err
		}
		return s.events.Append(txCtx, p.BookingID, typ, data)
	})
	entry := s.log.WithFields(logrus.Fields{
		"booking_id":        p.BookingID,
		"payment_intent_id": p.ExternalTransactionID,
		"event_type":        typ,
	})
	if err != nil {
		entry.WithError(err).Error("operator payment action succeeded remotely but was not recorded")
		return errors.Join(fmt.Errorf("record %s", typ), err)
	}
	entry.Info("operator payment action recorded")
	return nil
}
