package webhook

import (
	"context"
	"time"

	"slotkeeper/internal/domain"
)

type bookingStore interface {
	GetByRemoteID(ctx context.Context, remoteID string) (*domain.Booking, error)
	Transition(ctx context.Context, id string, to domain.LifecycleState, patch map[string]any) error
	OverlayMetadata(ctx context.Context, id string, patch map[string]any) error
	UpdateSlot(ctx context.Context, id string, start, end time.Time) error
}

type statePublisher interface {
	Publish(bookingID string, state domain.LifecycleState) int
}
