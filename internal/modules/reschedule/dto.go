package reschedule

import "time"

type RescheduleRequest struct {
	Start time.Time `json:"start" validate:"required"`
	// End defaults to Start plus the current booking length.
	End time.Time `json:"end"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}
