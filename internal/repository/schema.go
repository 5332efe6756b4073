package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Bootstrap schema. Statements are idempotent so startup can run them
// unconditionally.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT UNIQUE NOT NULL,
		name          TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'USER',
		plan          TEXT NOT NULL DEFAULT 'FREE',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS businesses (
		id             TEXT PRIMARY KEY,
		owner_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		industry       TEXT NOT NULL,
		company_name   TEXT NOT NULL DEFAULT '',
		annual_revenue NUMERIC(18,2) NOT NULL DEFAULT 0,
		employees      INTEGER,
		location       TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_businesses_owner_updated
		ON businesses (owner_id, updated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS analyses (
		id                      TEXT PRIMARY KEY,
		business_id             TEXT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		owner_id                TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		status                  TEXT NOT NULL DEFAULT 'DRAFT',
		risk_tolerance          TEXT NOT NULL DEFAULT 'MODERATE',
		gross_revenue           NUMERIC(18,2),
		operating_expenses      NUMERIC(18,2),
		debt_payments           NUMERIC(18,2),
		owner_compensation      NUMERIC(18,2),
		tax_obligations         NUMERIC(18,2),
		discretionary_cash_flow NUMERIC(18,2),
		recommended_premium     NUMERIC(18,2),
		affordability_score     INTEGER,
		recommendation          TEXT,
		report_generated_at     TIMESTAMPTZ,
		created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_business_updated
		ON analyses (business_id, updated_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_owner_status
		ON analyses (owner_id, status)`,
}

// Migrate creates the tables and indexes if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
