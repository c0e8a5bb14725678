package data

import (
	"context"
	"fmt"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/external/constituents"
	"github.com/wonny/twscan/internal/strategyconfig"
)

// DefaultStocks is the starter watch list
var DefaultStocks = []contracts.Stock{
	{Code: "2330", Name: "台積電", Enabled: true, Memo: "權值股"},
	{Code: "2317", Name: "鴻海", Enabled: true, Memo: "AI伺服器"},
	{Code: "2454", Name: "聯發科", Enabled: true, Memo: "IC設計"},
	{Code: "2308", Name: "台達電", Enabled: true, Memo: "電源供應"},
	{Code: "2303", Name: "聯電", Enabled: true, Memo: "成熟製程"},
}

// SeedResult counts what a seed wrote
type SeedResult struct {
	Stocks int `json:"stocks"`
	Params int `json:"params"`
}

// SeedDefaults writes DefaultStocks and the default strategy parameters
func SeedDefaults(ctx context.Context, stocks contracts.StockRepository, params contracts.StrategyParamRepository) (SeedResult, error) {
	if err := stocks.Upsert(ctx, DefaultStocks); err != nil {
		return SeedResult{}, fmt.Errorf("seed stocks: %w", err)
	}

	kv := strategyconfig.ToParams(contracts.DefaultScanConfig())
	if err := params.Upsert(ctx, kv); err != nil {
		return SeedResult{Stocks: len(DefaultStocks)}, fmt.Errorf("seed strategy params: %w", err)
	}
	return SeedResult{Stocks: len(DefaultStocks), Params: len(kv)}, nil
}

// AddConstituents inserts index constituents missing from the watch list.
// Existing rows keep their name, memo and enabled flag.
func AddConstituents(ctx context.Context, repo contracts.StockRepository, incoming []contracts.Stock) ([]contracts.Stock, error) {
	existing, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stocks: %w", err)
	}

	added := constituents.Merge(existing, incoming)
	if len(added) == 0 {
		return nil, nil
	}
	if err := repo.Upsert(ctx, added); err != nil {
		return nil, fmt.Errorf("add constituents: %w", err)
	}
	return added, nil
}
