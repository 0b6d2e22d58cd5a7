package paymentgw

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"slotkeeper/internal/domain"
)

type StripeAuthority struct {
	sc *client.API
}

func NewStripe(secretKey string, timeout time.Duration) *StripeAuthority {
	backends := stripe.NewBackends(&http.Client{Timeout: timeout})
	return &StripeAuthority{sc: client.New(secretKey, backends)}
}

func (s *StripeAuthority) CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return toIntent(pi), nil
}

func (s *StripeAuthority) RetrievePaymentIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.sc.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return toIntent(pi), nil
}

func (s *StripeAuthority) Refund(ctx context.Context, paymentIntentID string, amountCents *int64) (*RefundResult, error) {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(paymentIntentID)}
	params.Context = ctx
	if amountCents != nil {
		params.Amount = stripe.Int64(*amountCents)
	}
	r, err := s.sc.Refunds.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	status := string(r.Status)
	return &RefundResult{
		Success:       status == string(stripe.RefundStatusSucceeded) || status == string(stripe.RefundStatusPending),
		TransactionID: r.ID,
		AmountCents:   r.Amount,
		Status:        status,
	}, nil
}

func (s *StripeAuthority) Void(ctx context.Context, paymentIntentID string) (*RefundResult, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	pi, err := s.sc.PaymentIntents.Cancel(paymentIntentID, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &RefundResult{
		Success:       pi.Status == stripe.PaymentIntentStatusCanceled,
		TransactionID: pi.ID,
		AmountCents:   pi.Amount,
		Status:        string(pi.Status),
	}, nil
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	out := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
	if pi.LatestCharge != nil {
		out.LatestChargeID = pi.LatestCharge.ID
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	return out
}

func mapStripeError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		status := se.HTTPStatusCode
		if status == 0 {
			status = http.StatusBadGateway
		}
		return &domain.RemoteError{
			Authority: domain.AuthorityPayment,
			Status:    status,
			Message:   se.Msg,
			Body:      string(se.Code),
		}
	}
	return &domain.RemoteError{
		Authority: domain.AuthorityPayment,
		Status:    http.StatusBadGateway,
		Message:   err.Error(),
	}
}
