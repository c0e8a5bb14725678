package data

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/strategyconfig"
	"github.com/wonny/twscan/pkg/logger"
)

type memStocks struct {
	codes []string
	err   error
}

func (m *memStocks) List(ctx context.Context) ([]contracts.Stock, error) { return nil, m.err }

func (m *memStocks) EnabledCodes(ctx context.Context) ([]string, error) { return m.codes, m.err }

func (m *memStocks) Upsert(ctx context.Context, stocks []contracts.Stock) error { return nil }

type memParams struct {
	params []contracts.StrategyParam
}

func (m *memParams) List(ctx context.Context) ([]contracts.StrategyParam, error) {
	return m.params, nil
}

func (m *memParams) Upsert(ctx context.Context, params map[string]any) error { return nil }

func TestResolve_DBSource(t *testing.T) {
	src := NewDBSource(
		&memStocks{codes: []string{"2330", "2317"}},
		&memParams{params: []contracts.StrategyParam{
			{Key: strategyconfig.KeyMAShortDays, Value: "5"},
			{Key: strategyconfig.KeyMALongDays, Value: "20.0"},
			{Key: strategyconfig.KeyRSIThreshold, Value: "75.5"},
		}},
	)

	codes, cfg, err := Resolve(context.Background(), src, logger.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{"2330", "2317"}, codes)
	assert.Equal(t, 5, cfg.MAShortDays)
	assert.Equal(t, 20, cfg.MALongDays)
	assert.Equal(t, 75.5, cfg.RSIThreshold)
	// missing keys keep defaults
	assert.Equal(t, contracts.DefaultScanConfig().KDThreshold, cfg.KDThreshold)
}

func TestResolve_ListError(t *testing.T) {
	src := NewDBSource(&memStocks{err: errors.New("db down")}, &memParams{})

	_, _, err := Resolve(context.Background(), src, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestStaticSource(t *testing.T) {
	strategy := strategyconfig.Default()
	strategy.Universe.Stocks = []string{"0050", "2330"}
	strategy.Thresholds.KD = 30

	src := NewStaticSource(nil, strategy)
	codes, cfg, err := Resolve(context.Background(), src, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"0050", "2330"}, codes)
	assert.Equal(t, 30.0, cfg.KDThreshold)

	// explicit list wins over the file
	src = NewStaticSource([]string{"2454"}, strategy)
	codes, _, err = Resolve(context.Background(), src, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"2454"}, codes)

	// nil strategy means defaults
	_, cfg, err = Resolve(context.Background(), NewStaticSource(nil, nil), logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, contracts.DefaultScanConfig(), cfg)
}
