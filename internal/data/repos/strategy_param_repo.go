package repos

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/strategyconfig"
	"github.com/wonny/twscan/pkg/database"
)

// StrategyParamRepository implements contracts.StrategyParamRepository.
// Values are stored as text and parsed by strategyconfig.FromParams.
type StrategyParamRepository struct {
	pool *pgxpool.Pool
}

// NewStrategyParamRepository creates a new strategy parameter repository
func NewStrategyParamRepository(pool *pgxpool.Pool) *StrategyParamRepository {
	return &StrategyParamRepository{pool: pool}
}

// List returns all parameters ordered by key
func (r *StrategyParamRepository) List(ctx context.Context) ([]contracts.StrategyParam, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT parameter, value, description
		FROM strategy_params
		ORDER BY parameter
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy params: %w", err)
	}
	defer rows.Close()

	params := make([]contracts.StrategyParam, 0)
	for rows.Next() {
		var (
			p     contracts.StrategyParam
			value string
		)
		if err := rows.Scan(&p.Key, &value, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan strategy param: %w", err)
		}
		p.Value = value
		params = append(params, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strategy params: %w", err)
	}
	return params, nil
}

// Values returns parameters as a key/value map for strategyconfig.FromParams
func (r *StrategyParamRepository) Values(ctx context.Context) (map[string]any, error) {
	params, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	kv := make(map[string]any, len(params))
	for _, p := range params {
		kv[p.Key] = p.Value
	}
	return kv, nil
}

// Upsert writes every key. New keys get the default description.
func (r *StrategyParamRepository) Upsert(ctx context.Context, params map[string]any) error {
	if len(params) == 0 {
		return nil
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, k := range keys {
			if err := upsertParam(ctx, tx, k, params[k]); err != nil {
				return fmt.Errorf("failed to upsert %s: %w", k, err)
			}
		}
		return nil
	})
}

func upsertParam(ctx context.Context, tx pgx.Tx, key string, value any) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO strategy_params (parameter, value, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (parameter) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`, key, fmt.Sprint(value), strategyconfig.Descriptions[key])
	return err
}
