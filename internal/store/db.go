package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/driftloop/mailcore/config"
)

// Connect opens the Postgres connection pool and applies the pool limits
// the teacher applies per workspace connection, scaled down to the single
// pool this single-tenant engine needs.
func Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate creates every table the engine needs if it does not already
// exist, and seeds the BrandSettings singleton row (spec.md §4.2).
func Migrate(db *sql.DB) error {
	for _, query := range tableDefinitions {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	var exists bool
	err := db.QueryRow(`SELECT EXISTS(SELECT 1 FROM brand_settings WHERE id = $1)`, brandSettingsSingletonID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check brand_settings seed: %w", err)
	}
	if !exists {
		_, err = db.Exec(
			`INSERT INTO brand_settings (id, sender_name, sender_email, updated_at) VALUES ($1, $2, $3, NOW())`,
			brandSettingsSingletonID, "Newsletter", "no-reply@example.com",
		)
		if err != nil {
			return fmt.Errorf("seed brand_settings: %w", err)
		}
	}
	return nil
}
