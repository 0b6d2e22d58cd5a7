package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Booking is the local mirror of one appointment attempt. The scheduling
// authority owns the canonical record; this row converges towards it.
type Booking struct {
	ID              string            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RemoteBookingID string            `gorm:"column:remote_booking_id;type:varchar(64);not null;uniqueIndex" json:"remote_booking_id"`
	ServiceID       string            `gorm:"column:service_id;type:varchar(64);not null;index" json:"service_id"`
	ResourceID      *string           `gorm:"column:resource_id;type:varchar(64)" json:"resource_id,omitempty"`
	CustomerID      *string           `gorm:"column:customer_id;type:uuid;index" json:"customer_id,omitempty"`
	StartAt         time.Time         `gorm:"column:start_at;not null" json:"start_at"`
	EndAt           time.Time         `gorm:"column:end_at;not null" json:"end_at"`
	ClientName      string            `gorm:"column:client_name;type:varchar(255)" json:"client_name"`
	ClientEmail     string            `gorm:"column:client_email;type:varchar(255);index" json:"client_email"`
	ClientPhone     string            `gorm:"column:client_phone;type:varchar(64)" json:"client_phone"`
	State           LifecycleState    `gorm:"column:payment_status;type:varchar(20);not null;default:'HOLDING';index" json:"state"`
	PaymentIntentID *string           `gorm:"column:payment_intent_id;type:varchar(128);index" json:"payment_intent_id,omitempty"`
	Metadata        datatypes.JSONMap `gorm:"column:metadata" json:"metadata"`
	CreatedAt       time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

func (b *Booking) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Customer is deduplicated by normalized email.
type Customer struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	FirstName string    `gorm:"column:first_name;type:varchar(255)" json:"first_name"`
	LastName  string    `gorm:"column:last_name;type:varchar(255)" json:"last_name"`
	Phone     string    `gorm:"column:phone;type:varchar(64)" json:"phone"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

func (c *Customer) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type BookingEventType string

const (
	EventFinalized   BookingEventType = "finalized"
	EventRefunded    BookingEventType = "refunded"
	EventVoided      BookingEventType = "voided"
	EventEmailSent   BookingEventType = "email_sent"
	EventRescheduled BookingEventType = "rescheduled"
	EventCancelled   BookingEventType = "cancelled"
)

// BookingEvent is append-only. Rows are never updated or deleted.
type BookingEvent struct {
	ID        string            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BookingID string            `gorm:"column:booking_id;type:uuid;not null;index" json:"booking_id"`
	Type      BookingEventType  `gorm:"column:type;type:varchar(32);not null;index" json:"type"`
	Data      datatypes.JSONMap `gorm:"column:data" json:"data"`
	CreatedAt time.Time         `gorm:"column:created_at" json:"created_at"`
}

func (BookingEvent) TableName() string { return "booking_events" }

func (e *BookingEvent) BeforeCreate(_ *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

type PaymentRecordStatus string

const (
	PaymentRecordSucceeded       PaymentRecordStatus = "succeeded"
	PaymentRecordProcessing      PaymentRecordStatus = "processing"
	PaymentRecordRequiresCapture PaymentRecordStatus = "requires_capture"
	PaymentRecordRefunded        PaymentRecordStatus = "refunded"
	PaymentRecordPartialRefund   PaymentRecordStatus = "partially_refunded"
	PaymentRecordVoided          PaymentRecordStatus = "voided"
)

// Payment records one payment authority transaction against a booking.
// external_transaction_id is unique so a retried finalization cannot insert twice.
type Payment struct {
	ID                    string              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BookingID             string              `gorm:"column:booking_id;type:uuid;not null;index" json:"booking_id"`
	ExternalTransactionID string              `gorm:"column:external_transaction_id;type:varchar(128);not null;uniqueIndex" json:"external_transaction_id"`
	AmountCents           int64               `gorm:"column:amount_cents;not null" json:"amount_cents"`
	Currency              string              `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Status                PaymentRecordStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt             time.Time           `gorm:"column:created_at" json:"created_at"`
	UpdatedAt             time.Time           `gorm:"column:updated_at" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
