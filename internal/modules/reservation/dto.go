package reservation

import "time"

type Customer struct {
	Name  string `json:"name" validate:"omitempty,max=255"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,max=64"`
}

type ReserveRequest struct {
	ServiceID  string    `json:"service_id" validate:"required"`
	ResourceID string    `json:"resource_id"`
	Start      time.Time `json:"start" validate:"required"`
	// End defaults to Start plus the catalog duration.
	End      time.Time `json:"end"`
	Customer Customer  `json:"customer"`
}

// Reservation is the handle returned for a temporary hold.
type Reservation struct {
	BookingID       string    `json:"booking_id"`
	RemoteBookingID string    `json:"remote_booking_id"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	IsTemporary     bool      `json:"is_temporary"`
}
