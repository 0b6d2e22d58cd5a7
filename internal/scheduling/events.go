package scheduling

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrMalformedEvent = errors.New("malformed webhook event")

// Event is one push notification from the scheduling authority. The concrete
// type decides the local lifecycle transition; see the webhook reconciler.
type Event interface {
	Type() string
}

// BookingData is the booking snapshot carried by booking events. Raw keeps
// every field the authority sent so it can be overlaid onto local metadata.
type BookingData struct {
	ID          string
	Status      string
	IsCanceled  bool
	IsTemporary bool
	StartsAt    *time.Time
	EndsAt      *time.Time
	Raw         map[string]any
}

type PingEvent struct{ RawType string }

type BookingCreated struct {
	RawType string
	Booking BookingData
}

type BookingConfirmed struct {
	RawType string
	Booking BookingData
}

type BookingUpdated struct {
	RawType string
	Booking BookingData
}

type BookingCanceled struct {
	RawType string
	Booking BookingData
}

// UnknownEvent is a well-formed envelope whose type this service does not act on.
type UnknownEvent struct {
	RawType string
	Booking BookingData
}

func (e PingEvent) Type() string        { return e.RawType }
func (e BookingCreated) Type() string   { return e.RawType }
func (e BookingConfirmed) Type() string { return e.RawType }
func (e BookingUpdated) Type() string   { return e.RawType }
func (e BookingCanceled) Type() string  { return e.RawType }
func (e UnknownEvent) Type() string     { return e.RawType }

type envelope struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type bookingFields struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	IsCanceled  bool   `json:"is_canceled"`
	IsTemporary bool   `json:"is_temporary"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
}

// ParseEvent decodes a raw webhook body into its concrete event type.
// A payload flagged is_canceled is a cancellation whatever its type says.
// Types this service does not act on come back as UnknownEvent even when
// their data carries no booking id; only booking events require one.
func ParseEvent(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	typ := env.Type
	if typ == "" {
		typ = env.Event
	}
	lower := strings.ToLower(strings.TrimSpace(typ))
	if lower == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}
	if strings.Contains(lower, "ping") {
		return PingEvent{RawType: typ}, nil
	}

	data, decodeErr := decodeBookingData(env.Data)
	kind := classify(lower, data.IsCanceled)
	if kind == kindUnknown {
		return UnknownEvent{RawType: typ, Booking: data}, nil
	}
	if decodeErr == nil && data.ID == "" {
		decodeErr = fmt.Errorf("%w: missing booking id", ErrMalformedEvent)
	}
	if decodeErr != nil {
		// location.updated and friends match by verb but name another resource.
		if !aboutBookings(lower) {
			return UnknownEvent{RawType: typ, Booking: data}, nil
		}
		return nil, decodeErr
	}

	switch kind {
	case kindCanceled:
		return BookingCanceled{RawType: typ, Booking: data}, nil
	case kindConfirmed:
		return BookingConfirmed{RawType: typ, Booking: data}, nil
	case kindCreated:
		return BookingCreated{RawType: typ, Booking: data}, nil
	default:
		return BookingUpdated{RawType: typ, Booking: data}, nil
	}
}

type eventKind int

const (
	kindUnknown eventKind = iota
	kindCanceled
	kindConfirmed
	kindCreated
	kindUpdated
)

func classify(lower string, flaggedCanceled bool) eventKind {
	switch {
	case strings.Contains(lower, "cancel") || flaggedCanceled:
		return kindCanceled
	case strings.Contains(lower, "confirm"):
		return kindConfirmed
	case strings.Contains(lower, "created"):
		return kindCreated
	case strings.Contains(lower, "updated"):
		return kindUpdated
	}
	return kindUnknown
}

// aboutBookings reports whether a type names the booking resource, either
// explicitly or by being a bare verb such as "confirmed".
func aboutBookings(lower string) bool {
	resource, _, dotted := strings.Cut(lower, ".")
	return !dotted || strings.Contains(resource, "booking")
}

// decodeBookingData reads whatever booking fields are present. It returns the
// partial snapshot alongside any decode error so callers can decide whether
// the event needed them.
func decodeBookingData(raw json.RawMessage) (BookingData, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return BookingData{}, fmt.Errorf("%w: missing data", ErrMalformedEvent)
	}
	var f bookingFields
	if err := json.Unmarshal(raw, &f); err != nil {
		return BookingData{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	var all map[string]any
	if err := json.Unmarshal(raw, &all); err != nil {
		return BookingData{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return BookingData{
		ID:          f.ID,
		Status:      f.Status,
		IsCanceled:  f.IsCanceled,
		IsTemporary: f.IsTemporary,
		StartsAt:    parseTime(f.StartsAt),
		EndsAt:      parseTime(f.EndsAt),
		Raw:         all,
	}, nil
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, remoteTimeLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
