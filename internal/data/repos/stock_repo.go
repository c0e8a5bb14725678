package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/twscan/internal/contracts"
)

// StockRepository implements contracts.StockRepository
// ⭐ SSOT: 관심 종목 목록은 여기서만
type StockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository creates a new stock repository
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

// List returns the whole watch list ordered by code
func (r *StockRepository) List(ctx context.Context) ([]contracts.Stock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT stock_code, stock_name, enabled, memo
		FROM stocks
		ORDER BY stock_code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	stocks := make([]contracts.Stock, 0)
	for rows.Next() {
		var s contracts.Stock
		if err := rows.Scan(&s.Code, &s.Name, &s.Enabled, &s.Memo); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stocks: %w", err)
	}
	return stocks, nil
}

// EnabledCodes returns the codes to scan
func (r *StockRepository) EnabledCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT stock_code FROM stocks WHERE enabled ORDER BY stock_code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query enabled stocks: %w", err)
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect codes: %w", err)
	}
	return codes, nil
}

// Upsert inserts or updates stocks by code
func (r *StockRepository) Upsert(ctx context.Context, stocks []contracts.Stock) error {
	if len(stocks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range stocks {
		batch.Queue(`
			INSERT INTO stocks (stock_code, stock_name, enabled, memo)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (stock_code) DO UPDATE SET
				stock_name = EXCLUDED.stock_name,
				enabled = EXCLUDED.enabled,
				memo = EXCLUDED.memo,
				updated_at = NOW()
		`, s.Code, s.Name, s.Enabled, s.Memo)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, s := range stocks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert stock %s: %w", s.Code, err)
		}
	}
	return nil
}
