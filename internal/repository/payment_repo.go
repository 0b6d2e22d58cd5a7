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

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// InsertIfAbsent records a payment once per external transaction id.
// inserted is false when the transaction was already recorded.
func (r *PaymentRepository) InsertIfAbsent(ctx context.Context, p *domain.Payment) (inserted bool, err error) {
	res := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_transaction_id"}},
		DoNothing: true,
	}).Create(p)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return false, nil
		}
		return false, fmt.Errorf("insert payment: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *PaymentRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Payment, error) {
	var p domain.Payment
	if err := conn(ctx, r.db).Where("external_transaction_id = ?", externalID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, externalID string, status domain.PaymentRecordStatus) error {
	res := conn(ctx, r.db).Model(&domain.Payment{}).
		Where("external_transaction_id = ?", externalID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *PaymentRepository) CountByBooking(ctx context.Context, bookingID string) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&domain.Payment{}).Where("booking_id = ?", bookingID).Count(&n).Error
	return n, err
}
