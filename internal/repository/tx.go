package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type txKey struct{}

// TxManager opens store transactions and carries them in the context so every
// repository call made with that context joins the same transaction.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// WithTx runs fn inside a transaction. Nested calls reuse the outer one.
// Returning an error from fn rolls back.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func txFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txKey{}).(*gorm.DB)
	return tx
}

// conn returns the transaction bound to ctx, or the pool.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// metadataMerge overlays patch onto the stored metadata in one statement.
// Keys in patch win; keys absent from patch are kept.
func metadataMerge(db *gorm.DB, column string, patch map[string]any) (clause.Expr, error) {
	clean := make(map[string]any, len(patch))
	for k, v := range patch {
		if v != nil {
			clean[k] = v
		}
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return clause.Expr{}, fmt.Errorf("marshal metadata patch: %w", err)
	}
	if db.Dialector.Name() == "postgres" {
		return gorm.Expr(fmt.Sprintf("COALESCE(%s, '{}'::jsonb) || ?::jsonb", column), string(raw)), nil
	}
	return gorm.Expr(fmt.Sprintf("json_patch(COALESCE(%s, '{}'), ?)", column), string(raw)), nil
}
