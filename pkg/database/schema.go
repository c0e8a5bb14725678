package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Tables lists the tables created by Schema
var Tables = []string{"analysis_results", "stocks", "strategy_params"}

// Schema creates the scanner tables. Statements are idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS stocks (
		stock_code  VARCHAR(16) PRIMARY KEY,
		stock_name  TEXT        NOT NULL DEFAULT '',
		enabled     BOOLEAN     NOT NULL DEFAULT TRUE,
		memo        TEXT        NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS strategy_params (
		parameter   VARCHAR(64) PRIMARY KEY,
		value       TEXT        NOT NULL,
		description TEXT        NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS analysis_results (
		id          BIGSERIAL   PRIMARY KEY,
		run_id      UUID        NOT NULL,
		date        DATE        NOT NULL,
		stock_code  VARCHAR(16) NOT NULL,
		signal      VARCHAR(8)  NOT NULL,
		price       DOUBLE PRECISION NOT NULL,
		memo        TEXT        NOT NULL DEFAULT '',
		indicators  JSONB       NOT NULL DEFAULT '{}',
		position    INT         NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_results_run ON analysis_results (run_id, position)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_results_created ON analysis_results (created_at DESC)`,
}

// Migrate applies Schema in one transaction
func (db *DB) Migrate(ctx context.Context) error {
	return InTx(ctx, db.Pool, func(tx pgx.Tx) error {
		for i, stmt := range Schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migration step %d: %w", i, err)
			}
		}
		return nil
	})
}
