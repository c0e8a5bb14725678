package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/external/constituents"
	"github.com/wonny/twscan/internal/strategyconfig"
	"github.com/wonny/twscan/pkg/logger"
)

type stockTable struct {
	rows []contracts.Stock
}

func (s *stockTable) List(ctx context.Context) ([]contracts.Stock, error) { return s.rows, nil }

func (s *stockTable) EnabledCodes(ctx context.Context) ([]string, error) {
	var codes []string
	for _, r := range s.rows {
		if r.Enabled {
			codes = append(codes, r.Code)
		}
	}
	return codes, nil
}

func (s *stockTable) Upsert(ctx context.Context, stocks []contracts.Stock) error {
	for _, in := range stocks {
		replaced := false
		for i := range s.rows {
			if s.rows[i].Code == in.Code {
				s.rows[i] = in
				replaced = true
			}
		}
		if !replaced {
			s.rows = append(s.rows, in)
		}
	}
	return nil
}

type paramTable struct {
	kv map[string]any
}

func (p *paramTable) List(ctx context.Context) ([]contracts.StrategyParam, error) {
	var out []contracts.StrategyParam
	for k, v := range p.kv {
		out = append(out, contracts.StrategyParam{Key: k, Value: v})
	}
	return out, nil
}

func (p *paramTable) Upsert(ctx context.Context, params map[string]any) error {
	if p.kv == nil {
		p.kv = map[string]any{}
	}
	for k, v := range params {
		p.kv[k] = v
	}
	return nil
}

func TestSeedDefaults(t *testing.T) {
	stocks := &stockTable{}
	params := &paramTable{}

	res, err := SeedDefaults(context.Background(), stocks, params)
	require.NoError(t, err)

	assert.Equal(t, len(DefaultStocks), res.Stocks)
	assert.Len(t, stocks.rows, 5)
	assert.Contains(t, params.kv, strategyconfig.KeyMAShortDays)

	codes, cfg, err := Resolve(context.Background(), NewDBSource(stocks, params), logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"2330", "2317", "2454", "2308", "2303"}, codes)
	assert.Equal(t, contracts.DefaultScanConfig(), cfg)
}

func TestAddConstituents_KeepsExisting(t *testing.T) {
	stocks := &stockTable{rows: []contracts.Stock{
		{Code: "2330", Name: "TSMC", Enabled: false, Memo: "mine"},
	}}

	added, err := AddConstituents(context.Background(), stocks, constituents.Builtin())
	require.NoError(t, err)

	assert.Len(t, added, len(constituents.Builtin())-1)
	assert.Equal(t, contracts.Stock{Code: "2330", Name: "TSMC", Enabled: false, Memo: "mine"}, stocks.rows[0])

	// second call adds nothing
	added, err = AddConstituents(context.Background(), stocks, constituents.Builtin())
	require.NoError(t, err)
	assert.Empty(t, added)
}
