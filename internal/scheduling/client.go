// Package scheduling talks to the scheduling authority's REST API.
package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"slotkeeper/internal/domain"
	"slotkeeper/internal/pkg/dedup"
	"slotkeeper/internal/pkg/obs"
)

const maxErrorBody = 64 << 10

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	reads   *dedup.Coordinator
}

// NewClient builds a client whose every request is bounded by timeout.
// A timed out call has an unknown outcome and is reported as a 504 RemoteError.
func NewClient(baseURL, token string, timeout time.Duration, reads *dedup.Coordinator) *Client {
	if reads == nil {
		reads = dedup.New()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		reads:   reads,
	}
}

func (c *Client) CreateTemporaryBooking(ctx context.Context, req CreateBookingRequest) (*Booking, error) {
	body := createBookingBody{
		ServiceID:   req.ServiceID,
		LocationID:  req.LocationID,
		ResourceID:  req.ResourceID,
		StartsAt:    formatTime(req.StartsAt),
		EndsAt:      formatTime(req.EndsAt),
		IsTemporary: true,
		Metadata:    req.Metadata,
	}
	var out Booking
	if err := c.do(ctx, http.MethodPost, "/bookings", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ConfirmBooking(ctx context.Context, id string, metadata map[string]any) (*Booking, error) {
	temporary := false
	body := patchBookingBody{IsTemporary: &temporary, Metadata: metadata}
	var out Booking
	if err := c.do(ctx, http.MethodPatch, "/bookings/"+url.PathEscape(id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateBooking(ctx context.Context, id string, req UpdateBookingRequest) (*Booking, error) {
	body := patchBookingBody{
		StartsAt:       formatTime(req.StartsAt),
		EndsAt:         formatTime(req.EndsAt),
		IgnoreSchedule: req.IgnoreSchedule,
		Metadata:       req.Metadata,
	}
	var out Booking
	if err := c.do(ctx, http.MethodPatch, "/bookings/"+url.PathEscape(id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelBooking(ctx context.Context, id string) error {
	canceled := true
	return c.do(ctx, http.MethodPatch, "/bookings/"+url.PathEscape(id), nil, patchBookingBody{IsCanceled: &canceled}, nil)
}

func (c *Client) GetBooking(ctx context.Context, id string) (*Booking, error) {
	endpoint := "/bookings/" + url.PathEscape(id)
	v, err := c.read(ctx, endpoint, nil, func(ctx context.Context) (any, error) {
		var out Booking
		if err := c.do(ctx, http.MethodGet, endpoint, nil, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Booking), nil
}

func (c *Client) ListResources(ctx context.Context, locationID string) ([]Resource, error) {
	params := map[string]string{}
	if locationID != "" {
		params["location"] = locationID
	}
	v, err := c.read(ctx, "/resources", params, func(ctx context.Context) (any, error) {
		var out listEnvelope[Resource]
		if err := c.do(ctx, http.MethodGet, "/resources", params, nil, &out); err != nil {
			return nil, err
		}
		return out.Data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Resource), nil
}

func (c *Client) GetProject(ctx context.Context) (*Project, error) {
	v, err := c.read(ctx, "/project", nil, func(ctx context.Context) (any, error) {
		var out Project
		if err := c.do(ctx, http.MethodGet, "/project", nil, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Project), nil
}

// read collapses identical concurrent GETs. The shared call is detached from
// the first caller's cancellation; the client timeout still bounds it.
func (c *Client) read(ctx context.Context, endpoint string, params map[string]string, fn func(context.Context) (any, error)) (any, error) {
	key := dedup.CanonicalKey(endpoint, params)
	shared := context.WithoutCancel(ctx)
	v, _, err := c.reads.Do(ctx, key, func() (any, error) { return fn(shared) })
	return v, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, params map[string]string, in, out any) error {
	ctx, span := obs.Tracer("scheduling").Start(ctx, method+" "+endpoint)
	defer span.End()

	u := c.baseURL + endpoint
	if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, endpoint, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return transportError(err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		span.SetStatus(codes.Error, resp.Status)
		return &domain.RemoteError{
			Authority: domain.AuthorityScheduling,
			Status:    resp.StatusCode,
			Message:   errorMessage(raw, resp.Status),
			Body:      string(raw),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, endpoint, err)
	}
	return nil
}

func transportError(err error) error {
	status := http.StatusBadGateway
	var ue *url.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ue) && ue.Timeout()) {
		status = http.StatusGatewayTimeout
	}
	return &domain.RemoteError{
		Authority: domain.AuthorityScheduling,
		Status:    status,
		Message:   err.Error(),
	}
}

func errorMessage(raw []byte, fallback string) string {
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil {
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" && len(s) < 512 {
		return s
	}
	return fallback
}
