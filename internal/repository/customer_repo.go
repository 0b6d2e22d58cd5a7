package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"slotkeeper/internal/domain"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// keepNonEmpty only overwrites a stored column when the incoming value is set.
func keepNonEmpty(col string) clause.Assignment {
	return clause.Assignment{
		Column: clause.Column{Name: col},
		Value: gorm.Expr(fmt.Sprintf(
			"CASE WHEN excluded.%[1]s IS NOT NULL AND excluded.%[1]s <> '' THEN excluded.%[1]s ELSE customers.%[1]s END", col)),
	}
}

// Upsert inserts a customer keyed by normalized email. An existing row keeps
// any field the incoming record leaves empty.
func (r *CustomerRepository) Upsert(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	c.Email = NormalizeEmail(c.Email)
	if c.Email == "" {
		return nil, fmt.Errorf("%w: customer email is required", domain.ErrInvalidRequest)
	}
	c.UpdatedAt = time.Now().UTC()

	err := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.Set{
			keepNonEmpty("first_name"),
			keepNonEmpty("last_name"),
			keepNonEmpty("phone"),
			{Column: clause.Column{Name: "updated_at"}, Value: c.UpdatedAt},
		},
	}).Create(c).Error
	if err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}
	return r.GetByEmail(ctx, c.Email)
}

func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	var c domain.Customer
	err := conn(ctx, r.db).Where("email = ?", NormalizeEmail(email)).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&domain.Customer{}).Count(&n).Error
	return n, err
}
