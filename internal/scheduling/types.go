package scheduling

import "time"

// Booking is the scheduling authority's view of a booking.
type Booking struct {
	ID          string         `json:"id"`
	ServiceID   string         `json:"service_id"`
	LocationID  string         `json:"location_id"`
	ResourceID  string         `json:"resource_id,omitempty"`
	StartsAt    time.Time      `json:"starts_at"`
	EndsAt      time.Time      `json:"ends_at"`
	IsTemporary bool           `json:"is_temporary"`
	IsCanceled  bool           `json:"is_canceled"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type CreateBookingRequest struct {
	ServiceID  string
	LocationID string
	ResourceID string
	StartsAt   time.Time
	EndsAt     time.Time
	Metadata   map[string]any
}

type UpdateBookingRequest struct {
	StartsAt       time.Time
	EndsAt         time.Time
	IgnoreSchedule bool
	Metadata       map[string]any
}

type Resource struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	IsEnabled bool           `json:"enabled"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type createBookingBody struct {
	ServiceID   string         `json:"service_id"`
	LocationID  string         `json:"location_id"`
	ResourceID  string         `json:"resource_id,omitempty"`
	StartsAt    string         `json:"starts_at"`
	EndsAt      string         `json:"ends_at"`
	IsTemporary bool           `json:"is_temporary"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type patchBookingBody struct {
	StartsAt       string         `json:"starts_at,omitempty"`
	EndsAt         string         `json:"ends_at,omitempty"`
	IsTemporary    *bool          `json:"is_temporary,omitempty"`
	IsCanceled     *bool          `json:"is_canceled,omitempty"`
	IgnoreSchedule bool           `json:"ignore_schedule,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type listEnvelope[T any] struct {
	Data []T `json:"data"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// remoteTimeLayout is the offset form the authority accepts for starts_at/ends_at.
const remoteTimeLayout = "2006-01-02T15:04:05-07:00"

func formatTime(t time.Time) string {
	return t.Format(remoteTimeLayout)
}
