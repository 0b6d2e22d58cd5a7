package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrUnknownService       = fmt.Errorf("%w: unknown service", ErrInvalidRequest)
	ErrAmountTooLow         = errors.New("amount below minimum chargeable unit")
	ErrPaymentNotChargeable = errors.New("payment is not in a chargeable state")
	ErrSignatureInvalid     = errors.New("invalid webhook signature")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrBookingCancelled     = errors.New("booking already cancelled")
	ErrInvalidTransition    = errors.New("invalid lifecycle transition")
	ErrReconciliationMiss   = errors.New("webhook refers to an unknown booking")
	ErrRemoteAuthority      = errors.New("remote authority error")
	ErrCutoffViolation      = errors.New("change window closed")
)

const (
	AuthorityScheduling = "scheduling"
	AuthorityPayment    = "payment"
)

// RemoteError carries the status and body returned by an external authority.
// It is surfaced to callers verbatim on the primary write path.
type RemoteError struct {
	Authority string
	Status    int
	Message   string
	Body      string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s authority returned %d: %s", e.Authority, e.Status, e.Message)
	}
	return fmt.Sprintf("%s authority returned %d", e.Authority, e.Status)
}

func (e *RemoteError) Is(target error) bool { return target == ErrRemoteAuthority }

// CutoffViolation is returned when a change is requested too close to the
// booking start.
type CutoffViolation struct {
	HoursRemaining float64
	Cutoff         time.Duration
}

func NewCutoffViolation(remaining, cutoff time.Duration) *CutoffViolation {
	hours := math.Floor(remaining.Hours()*100) / 100
	if hours < 0 {
		hours = 0
	}
	return &CutoffViolation{HoursRemaining: hours, Cutoff: cutoff}
}

func (e *CutoffViolation) Error() string {
	return fmt.Sprintf("changes must be made at least %.0f hours before the appointment (%.2f hours remaining)", e.Cutoff.Hours(), e.HoursRemaining)
}

func (e *CutoffViolation) Is(target error) bool { return target == ErrCutoffViolation }
