package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"slotkeeper/internal/domain"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// UpsertHold inserts the row for a fresh hold or, when the remote id is
// already known, refreshes the denormalized customer fields and slot and
// overlays the metadata. The lifecycle state is never touched on conflict.
func (r *BookingRepository) UpsertHold(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	if b.Metadata == nil {
		b.Metadata = map[string]any{}
	}
	if b.State == "" {
		b.State = domain.StateHolding
	}

	db := conn(ctx, r.db)
	merge := "json_patch(COALESCE(bookings.metadata, '{}'), excluded.metadata)"
	if db.Dialector.Name() == "postgres" {
		merge = "COALESCE(bookings.metadata, '{}'::jsonb) || excluded.metadata"
	}

	updates := clause.AssignmentColumns([]string{
		"service_id", "resource_id", "start_at", "end_at",
		"client_name", "client_email", "client_phone", "updated_at",
	})
	updates = append(updates, clause.Assignment{Column: clause.Column{Name: "metadata"}, Value: gorm.Expr(merge)})

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "remote_booking_id"}},
		DoUpdates: updates,
	}).Create(b).Error
	if err != nil {
		return nil, fmt.Errorf("upsert booking %s: %w", b.RemoteBookingID, err)
	}
	return r.GetByRemoteID(ctx, b.RemoteBookingID)
}

// CreateIfAbsent inserts b unless a row with the same remote id exists, and
// returns whichever row is stored. Used to rebuild a lost row from payment
// metadata without clobbering a row written concurrently.
func (r *BookingRepository) CreateIfAbsent(ctx context.Context, b *domain.Booking) (*domain.Booking, bool, error) {
	if b.Metadata == nil {
		b.Metadata = map[string]any{}
	}
	if b.State == "" {
		b.State = domain.StateHolding
	}
	res := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "remote_booking_id"}},
		DoNothing: true,
	}).Create(b)
	if res.Error != nil {
		return nil, false, fmt.Errorf("insert booking %s: %w", b.RemoteBookingID, res.Error)
	}
	stored, err := r.GetByRemoteID(ctx, b.RemoteBookingID)
	if err != nil {
		return nil, false, err
	}
	return stored, res.RowsAffected > 0, nil
}

func (r *BookingRepository) GetByRemoteID(ctx context.Context, remoteID string) (*domain.Booking, error) {
	var b domain.Booking
	if err := conn(ctx, r.db).Where("remote_booking_id = ?", remoteID).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := conn(ctx, r.db).Where("id = ?", id).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) SetPaymentIntent(ctx context.Context, remoteID, paymentIntentID string) error {
	res := conn(ctx, r.db).Model(&domain.Booking{}).
		Where("remote_booking_id = ?", remoteID).
		Updates(map[string]interface{}{
			"payment_intent_id": paymentIntentID,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) LinkCustomer(ctx context.Context, id, customerID string) error {
	return conn(ctx, r.db).Model(&domain.Booking{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"customer_id": customerID,
			"updated_at":  time.Now().UTC(),
		}).Error
}

// Transition moves the booking to state to with one guarded UPDATE, also
// overlaying patch onto metadata when given. A row whose current state cannot
// reach to is left untouched and ErrInvalidTransition is returned.
func (r *BookingRepository) Transition(ctx context.Context, id string, to domain.LifecycleState, patch map[string]any) error {
	db := conn(ctx, r.db)
	updates := map[string]interface{}{
		"payment_status": to,
		"updated_at":     time.Now().UTC(),
	}
	if len(patch) > 0 {
		expr, err := metadataMerge(db, "metadata", patch)
		if err != nil {
			return err
		}
		updates["metadata"] = expr
	}

	res := db.Model(&domain.Booking{}).
		Where("id = ? AND payment_status IN ?", id, domain.SourcesFor(to)).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.State, to)
}

func (r *BookingRepository) OverlayMetadata(ctx context.Context, id string, patch map[string]any) error {
	db := conn(ctx, r.db)
	expr, err := metadataMerge(db, "metadata", patch)
	if err != nil {
		return err
	}
	res := db.Model(&domain.Booking{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"metadata":   expr,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

// Reschedule moves the slot of a booking that is not terminal.
func (r *BookingRepository) Reschedule(ctx context.Context, id string, start, end time.Time, patch map[string]any) error {
	db := conn(ctx, r.db)
	updates := map[string]interface{}{
		"start_at":   start,
		"end_at":     end,
		"updated_at": time.Now().UTC(),
	}
	if len(patch) > 0 {
		expr, err := metadataMerge(db, "metadata", patch)
		if err != nil {
			return err
		}
		updates["metadata"] = expr
	}
	res := db.Model(&domain.Booking{}).
		Where("id = ? AND payment_status NOT IN ?", id, terminalStates).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrBookingCancelled
	}
	return nil
}

var terminalStates = []domain.LifecycleState{domain.StateCancelled, domain.StateExpired}

// UpdateSlot copies a slot pushed by the scheduling authority. Terminal rows
// keep their slot; the guard lives in the statement so a concurrent cancel wins.
func (r *BookingRepository) UpdateSlot(ctx context.Context, id string, start, end time.Time) error {
	return conn(ctx, r.db).Model(&domain.Booking{}).
		Where("id = ? AND payment_status NOT IN ?", id, terminalStates).
		Updates(map[string]interface{}{
			"start_at":   start,
			"end_at":     end,
			"updated_at": time.Now().UTC(),
		}).Error
}
