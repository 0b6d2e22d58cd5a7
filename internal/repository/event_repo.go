package repository

import (
	"context"

	"gorm.io/gorm"

	"slotkeeper/internal/domain"
)

// EventRepository appends to the booking audit log. There is no update or delete.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(ctx context.Context, bookingID string, typ domain.BookingEventType, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	return conn(ctx, r.db).Create(&domain.BookingEvent{
		BookingID: bookingID,
		Type:      typ,
		Data:      data,
	}).Error
}

func (r *EventRepository) CountByType(ctx context.Context, bookingID string, typ domain.BookingEventType) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&domain.BookingEvent{}).
		Where("booking_id = ? AND type = ?", bookingID, typ).
		Count(&n).Error
	return n, err
}

func (r *EventRepository) ListByBooking(ctx context.Context, bookingID string) ([]domain.BookingEvent, error) {
	var out []domain.BookingEvent
	err := conn(ctx, r.db).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
