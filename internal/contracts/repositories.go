package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// StockRepository manages the watch list
type StockRepository interface {
	List(ctx context.Context) ([]Stock, error)
	EnabledCodes(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, stocks []Stock) error
}

// Stock is one watch list entry
type Stock struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Memo    string `json:"memo"`
}

// StrategyParamRepository manages strategy parameters as key/value rows
type StrategyParamRepository interface {
	List(ctx context.Context) ([]StrategyParam, error)
	Upsert(ctx context.Context, params map[string]any) error
}

// StrategyParam is one strategy parameter row
type StrategyParam struct {
	Key         string `json:"parameter"`
	Value       any    `json:"value"`
	Description string `json:"description"`
}

// ResultRepository manages persisted scan results
type ResultRepository interface {
	SaveReport(ctx context.Context, report *ScanReport) error
	GetLatest(ctx context.Context) (*StoredReport, error)
}

// StoredReport is a report read back from storage
type StoredReport struct {
	RunID     string         `json:"run_id"`
	CreatedAt time.Time      `json:"created_at"`
	Rows      []SignalResult `json:"rows"`
}
