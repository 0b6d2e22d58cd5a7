package database

import (
	"context"
	"embed"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"slotkeeper/internal/domain"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const advisoryLockID int64 = 804413117

// Migrate brings the schema up to date. PostgreSQL gets the embedded SQL files
// (citext emails, jsonb metadata); SQLite is auto-migrated from the models.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if db.Dialector.Name() == "postgres" {
		return applySQL(ctx, db)
	}
	return db.WithContext(ctx).AutoMigrate(
		&domain.Customer{},
		&domain.Booking{},
		&domain.BookingEvent{},
		&domain.Payment{},
	)
}

func applySQL(ctx context.Context, db *gorm.DB) error {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	return db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := conn.Exec(`SELECT pg_advisory_lock(?)`, advisoryLockID).Error; err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		defer conn.Exec(`SELECT pg_advisory_unlock(?)`, advisoryLockID)

		if err := conn.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
	name TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`).Error; err != nil {
			return fmt.Errorf("ensure schema_migrations: %w", err)
		}

		for _, name := range names {
			var applied int64
			if err := conn.Raw(`SELECT COUNT(1) FROM schema_migrations WHERE name = ?`, name).Scan(&applied).Error; err != nil {
				return fmt.Errorf("check migration %s: %w", name, err)
			}
			if applied > 0 {
				continue
			}

			body, err := migrationFiles.ReadFile("migrations/" + name)
			if err != nil {
				return fmt.Errorf("read migration %s: %w", name, err)
			}

			err = conn.Transaction(func(tx *gorm.DB) error {
				if err := tx.Exec(string(body)).Error; err != nil {
					return err
				}
				return tx.Exec(`INSERT INTO schema_migrations (name) VALUES (?)`, name).Error
			})
			if err != nil {
				return fmt.Errorf("apply migration %s: %w", name, err)
			}
		}
		return nil
	})
}
