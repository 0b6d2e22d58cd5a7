// Package notify carries best-effort side channels: contact sync, customer
// emails and the mirrored calendar event. Nothing here may fail a booking.
package notify

import (
	"context"
	"time"
)

const (
	KeyContactUpsert     = "contact.upsert"
	KeyBookingConfirmed  = "email.booking_confirmed"
	KeyBookingReschedule = "email.booking_rescheduled"
	KeyBookingCancelled  = "email.booking_cancelled"
	KeyEventUpdated      = "calendar.event_updated"
)

type Contact struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// BookingMessage is the payload shared by the booking emails and the
// calendar mirror.
type BookingMessage struct {
	BookingID       string    `json:"booking_id"`
	RemoteBookingID string    `json:"remote_booking_id"`
	ServiceID       string    `json:"service_id"`
	CustomerEmail   string    `json:"customer_email"`
	CustomerName    string    `json:"customer_name,omitempty"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at"`
	Timezone        string    `json:"timezone,omitempty"`
	ManageToken     string    `json:"manage_token,omitempty"`
	Reason          string    `json:"reason,omitempty"`
}

type Notifier interface {
	UpsertContact(ctx context.Context, c Contact) error
	SendBookingConfirmation(ctx context.Context, m BookingMessage) error
	SendRescheduleNotice(ctx context.Context, m BookingMessage) error
	SendCancellationNotice(ctx context.Context, m BookingMessage) error
	MirrorEventUpdate(ctx context.Context, m BookingMessage) error
}

// Nop is used when messaging is not configured.
type Nop struct{}

func (Nop) UpsertContact(context.Context, Contact) error                 { return nil }
func (Nop) SendBookingConfirmation(context.Context, BookingMessage) error { return nil }
func (Nop) SendRescheduleNotice(context.Context, BookingMessage) error    { return nil }
func (Nop) SendCancellationNotice(context.Context, BookingMessage) error  { return nil }
func (Nop) MirrorEventUpdate(context.Context, BookingMessage) error       { return nil }
