package repos

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/strategyconfig"
	"github.com/wonny/twscan/pkg/config"
	"github.com/wonny/twscan/pkg/database"
)

// integrationDB needs a disposable Postgres; tables are migrated, rows are left in place.
func integrationDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() || os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestStockRepository(t *testing.T) {
	db := integrationDB(t)
	repo := NewStockRepository(db.Pool)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, []contracts.Stock{
		{Code: "T9901", Name: "test on", Enabled: true},
		{Code: "T9902", Name: "test off", Enabled: false, Memo: "paused"},
	}))

	codes, err := repo.EnabledCodes(ctx)
	require.NoError(t, err)
	assert.Contains(t, codes, "T9901")
	assert.NotContains(t, codes, "T9902")

	stocks, err := repo.List(ctx)
	require.NoError(t, err)
	var found bool
	for _, s := range stocks {
		if s.Code == "T9902" {
			found = true
			assert.Equal(t, "paused", s.Memo)
		}
	}
	assert.True(t, found)
}

func TestStrategyParamRepository(t *testing.T) {
	db := integrationDB(t)
	repo := NewStrategyParamRepository(db.Pool)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, strategyconfig.ToParams(contracts.DefaultScanConfig())))

	kv, err := repo.Values(ctx)
	require.NoError(t, err)

	cfg, warnings := strategyconfig.FromParams(kv)
	assert.Empty(t, warnings)
	assert.Equal(t, contracts.DefaultScanConfig(), cfg)
}

func TestResultRepository(t *testing.T) {
	db := integrationDB(t)
	repo := NewResultRepository(db.Pool)
	ctx := context.Background()

	day := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	report := &contracts.ScanReport{
		RunID:      uuid.NewString(),
		FinishedAt: time.Now(),
		Rows: []contracts.SignalResult{
			{Code: "2330", Date: day, Close: 912.5, Signal: contracts.SignalGreen, Memo: "cross", K: contracts.Some(20), D: contracts.Some(18), RSI: contracts.None()},
			{Code: "1101", Date: day, Close: 33.15, Signal: contracts.SignalYellow, Memo: "hold"},
		},
	}
	require.NoError(t, repo.SaveReport(ctx, report))

	latest, err := repo.GetLatest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, report.RunID, latest.RunID)
	require.Len(t, latest.Rows, 2)
	assert.Equal(t, "2330", latest.Rows[0].Code)
	assert.Equal(t, contracts.SignalGreen, latest.Rows[0].Signal)
	assert.True(t, latest.Rows[0].K.Valid)
	assert.False(t, latest.Rows[0].RSI.Valid)
}
