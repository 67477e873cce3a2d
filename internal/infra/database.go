package infra

import (
	"fmt"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/repository"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the GORM connection (pgx driver) and sizes the pool.
// Schema is not migrated here; call EnsureSchema.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	return db, nil
}

// EnsureSchema applies idempotent DDL for the loyalty, session and counter
// tables and, when the catalog lives in Postgres, one jsonb table per
// catalog collection. GORM AutoMigrate is not used: the CHECK constraints,
// the jsonb GIN index and the C-collated key index are written by hand.
func EnsureSchema(db *gorm.DB, cols *repository.Collections) error {
	patches := []struct{ descr, sql string }{
		{"loyalty_clients", `
CREATE TABLE IF NOT EXISTS loyalty_clients (
    client_id        VARCHAR(16)   PRIMARY KEY,
    name             TEXT          NOT NULL,
    name_lower       TEXT          NOT NULL,
    phone            TEXT          NOT NULL DEFAULT '',
    instagram        TEXT          NOT NULL DEFAULT '',
    email            TEXT          NOT NULL DEFAULT '',
    points           INT           NOT NULL DEFAULT 0 CHECK (points >= 0),
    total_purchases  DECIMAL(12,2) NOT NULL DEFAULT 0,
    level            VARCHAR(16)   NOT NULL,
    visits           INT           NOT NULL DEFAULT 0 CHECK (visits >= 0),
    token            VARCHAR(32)   NOT NULL UNIQUE,
    qr_link          TEXT          NOT NULL DEFAULT '',
    last_movement_at TIMESTAMPTZ,
    last_purchase_at TIMESTAMPTZ,
    created_at       TIMESTAMPTZ   NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ   NOT NULL DEFAULT now()
)`},
		{"idx_loyalty_clients_name_lower",
			`CREATE INDEX IF NOT EXISTS idx_loyalty_clients_name_lower ON loyalty_clients (name_lower text_pattern_ops)`},
		{"idx_loyalty_clients_phone",
			`CREATE INDEX IF NOT EXISTS idx_loyalty_clients_phone ON loyalty_clients (phone)`},
		{"idx_loyalty_clients_updated_at",
			`CREATE INDEX IF NOT EXISTS idx_loyalty_clients_updated_at ON loyalty_clients (updated_at DESC)`},
		{"loyalty_movements", `
CREATE TABLE IF NOT EXISTS loyalty_movements (
    id              UUID          PRIMARY KEY DEFAULT gen_random_uuid(),
    client_id       VARCHAR(16)   NOT NULL REFERENCES loyalty_clients(client_id),
    client_name     TEXT          NOT NULL,
    type            VARCHAR(16)   NOT NULL CHECK (type IN ('purchase', 'redeem')),
    amount          DECIMAL(12,2) NOT NULL DEFAULT 0,
    points_earned   INT           NOT NULL DEFAULT 0 CHECK (points_earned >= 0),
    points_redeemed INT           NOT NULL DEFAULT 0 CHECK (points_redeemed >= 0),
    points_final    INT           NOT NULL CHECK (points_final >= 0),
    notes           TEXT          NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ   NOT NULL DEFAULT now()
)`},
		{"idx_loyalty_movements_client",
			`CREATE INDEX IF NOT EXISTS idx_loyalty_movements_client ON loyalty_movements (client_id, created_at DESC)`},
		{"counters", `
CREATE TABLE IF NOT EXISTS counters (
    name VARCHAR(64) PRIMARY KEY,
    next INT         NOT NULL DEFAULT 1
)`},
		{"counters_sku_columns", `
ALTER TABLE counters
    ADD COLUMN IF NOT EXISTS source           TEXT        NOT NULL DEFAULT '',
    ADD COLUMN IF NOT EXISTS sample_last_code TEXT        NOT NULL DEFAULT '',
    ADD COLUMN IF NOT EXISTS updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()`},
		{"admin_sessions", `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id         UUID        PRIMARY KEY,
    expires_at TIMESTAMPTZ NOT NULL,
    revoked_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	}

	if cols != nil {
		if err := cols.Validate(); err != nil {
			return err
		}
		for _, t := range cols.All() {
			patches = append(patches,
				struct{ descr, sql string }{t, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    doc_id     TEXT        PRIMARY KEY,
    data       JSONB       NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, t)},
				struct{ descr, sql string }{"idx_" + t + "_doc_id_c", fmt.Sprintf(
					`CREATE INDEX IF NOT EXISTS idx_%s_doc_id_c ON %s (doc_id COLLATE "C")`, t, t)},
				struct{ descr, sql string }{"idx_" + t + "_tokens", fmt.Sprintf(
					`CREATE INDEX IF NOT EXISTS idx_%s_tokens ON %s USING GIN ((data->'searchTokens'))`, t, t)},
			)
		}
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("schema %q: %w", p.descr, err)
		}
	}
	return nil
}
