package data

import (
	"context"
	"fmt"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/strategyconfig"
	"github.com/wonny/twscan/pkg/logger"
)

// DBSource reads the instrument list and parameters from Postgres
type DBSource struct {
	stocks contracts.StockRepository
	params contracts.StrategyParamRepository
}

// NewDBSource creates a config source over the repositories
func NewDBSource(stocks contracts.StockRepository, params contracts.StrategyParamRepository) *DBSource {
	return &DBSource{stocks: stocks, params: params}
}

// EnabledCodes implements contracts.ConfigSource
func (s *DBSource) EnabledCodes(ctx context.Context) ([]string, error) {
	return s.stocks.EnabledCodes(ctx)
}

// StrategyParams implements contracts.ConfigSource
func (s *DBSource) StrategyParams(ctx context.Context) (map[string]any, error) {
	params, err := s.params.List(ctx)
	if err != nil {
		return nil, err
	}
	kv := make(map[string]any, len(params))
	for _, p := range params {
		kv[p.Key] = p.Value
	}
	return kv, nil
}

// StaticSource serves a fixed list and a strategy file (no database)
type StaticSource struct {
	codes    []string
	strategy *strategyconfig.Config
}

// NewStaticSource uses codes when non-empty, otherwise universe.stocks of the strategy
func NewStaticSource(codes []string, strategy *strategyconfig.Config) *StaticSource {
	if strategy == nil {
		strategy = strategyconfig.Default()
	}
	if len(codes) == 0 {
		codes = strategy.Universe.Stocks
	}
	return &StaticSource{codes: codes, strategy: strategy}
}

// EnabledCodes implements contracts.ConfigSource
func (s *StaticSource) EnabledCodes(ctx context.Context) ([]string, error) {
	out := make([]string, len(s.codes))
	copy(out, s.codes)
	return out, nil
}

// StrategyParams implements contracts.ConfigSource
func (s *StaticSource) StrategyParams(ctx context.Context) (map[string]any, error) {
	return strategyconfig.ToParams(s.strategy.ScanConfig()), nil
}

// Resolve loads the codes and a validated ScanConfig from src.
// Parameter warnings are logged; an invalid config is an error.
// ⭐ SSOT: ConfigSource → (codes, ScanConfig) 변환은 여기서만
func Resolve(ctx context.Context, src contracts.ConfigSource, log *logger.Logger) ([]string, contracts.ScanConfig, error) {
	codes, err := src.EnabledCodes(ctx)
	if err != nil {
		return nil, contracts.ScanConfig{}, fmt.Errorf("load stock list: %w", err)
	}

	kv, err := src.StrategyParams(ctx)
	if err != nil {
		return nil, contracts.ScanConfig{}, fmt.Errorf("load strategy params: %w", err)
	}

	cfg, warnings := strategyconfig.FromParams(kv)
	for _, w := range warnings {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	if err := strategyconfig.ValidateScanConfig(cfg); err != nil {
		return nil, contracts.ScanConfig{}, fmt.Errorf("strategy params: %w", err)
	}
	return codes, cfg, nil
}
