package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/pkg/database"
)

// ResultRepository implements contracts.ResultRepository
// ⭐ SSOT: 스캔 결과 저장/조회는 여기서만
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new result repository
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// indicatorJSON is the JSONB payload of one row; undefined values are null
type indicatorJSON struct {
	K   contracts.NullFloat `json:"k"`
	D   contracts.NullFloat `json:"d"`
	RSI contracts.NullFloat `json:"rsi"`
}

// SaveReport inserts every row of the report in one transaction
func (r *ResultRepository) SaveReport(ctx context.Context, report *contracts.ScanReport) error {
	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		for i, row := range report.Rows {
			if err := r.saveRow(ctx, tx, report, i, row); err != nil {
				return fmt.Errorf("failed to save result for %s: %w", row.Code, err)
			}
		}
		return nil
	})
}

func (r *ResultRepository) saveRow(ctx context.Context, tx pgx.Tx, report *contracts.ScanReport, pos int, row contracts.SignalResult) error {
	query := `
		INSERT INTO analysis_results (
			run_id, date, stock_code, signal, price, memo, indicators, position, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	indicators, err := json.Marshal(indicatorJSON{
		K:   row.K,
		D:   row.D,
		RSI: row.RSI,
	})
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, query,
		report.RunID, row.Date, row.Code, row.Signal.String(), row.Close, row.Memo,
		indicators, pos, report.FinishedAt,
	)
	return err
}

// GetLatest returns the rows of the most recent run, or (nil, nil) when empty
func (r *ResultRepository) GetLatest(ctx context.Context) (*contracts.StoredReport, error) {
	var (
		runID     string
		createdAt time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT run_id::text, created_at
		FROM analysis_results
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`).Scan(&runID, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT date, stock_code, signal, price, memo, indicators
		FROM analysis_results
		WHERE run_id = $1
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	stored := &contracts.StoredReport{RunID: runID, CreatedAt: createdAt}
	for rows.Next() {
		var (
			res     contracts.SignalResult
			signal  string
			payload []byte
		)
		if err := rows.Scan(&res.Date, &res.Code, &signal, &res.Close, &res.Memo, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if res.Signal, err = contracts.ParseSignal(signal); err != nil {
			return nil, err
		}

		var ind indicatorJSON
		if err := json.Unmarshal(payload, &ind); err != nil {
			return nil, fmt.Errorf("failed to decode indicators for %s: %w", res.Code, err)
		}
		res.K, res.D, res.RSI = ind.K, ind.D, ind.RSI

		stored.Rows = append(stored.Rows, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return stored, nil
}
