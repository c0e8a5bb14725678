package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/pipeline"
	"github.com/wonny/twscan/pkg/logger"
)

type stubRunner struct {
	result *pipeline.RunResult
	err    error
	calls  int
}

func (r *stubRunner) Run(ctx context.Context, cfg pipeline.RunConfig) (*pipeline.RunResult, error) {
	r.calls++
	return r.result, r.err
}

func TestDailyScanJob(t *testing.T) {
	r := &stubRunner{result: &pipeline.RunResult{RunID: "x", SinkErr: errors.New("csv: denied")}}
	job := NewDailyScanJob(r, "", logger.Nop())

	assert.Equal(t, "daily_scan", job.Name())
	assert.Equal(t, "0 40 13 * * 1-5", job.Schedule())

	// sink failures are not retried
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, r.calls)
}

func TestDailyScanJob_Errors(t *testing.T) {
	r := &stubRunner{err: errors.New("config: db down")}
	job := NewDailyScanJob(r, "0 0 14 * * *", logger.Nop())

	assert.Equal(t, "0 0 14 * * *", job.Schedule())
	assert.Error(t, job.Run(context.Background()))

	r.err = pipeline.ErrScanInProgress
	assert.NoError(t, job.Run(context.Background()))
}

type fixedSource []contracts.Stock

func (f fixedSource) Fetch(ctx context.Context) []contracts.Stock { return f }

type stockList struct {
	rows []contracts.Stock
}

func (s *stockList) List(ctx context.Context) ([]contracts.Stock, error) { return s.rows, nil }

func (s *stockList) EnabledCodes(ctx context.Context) ([]string, error) { return nil, nil }

func (s *stockList) Upsert(ctx context.Context, stocks []contracts.Stock) error {
	s.rows = append(s.rows, stocks...)
	return nil
}

func TestConstituentsJob(t *testing.T) {
	repo := &stockList{rows: []contracts.Stock{{Code: "2330"}}}
	src := fixedSource{{Code: "2330"}, {Code: "2317"}}

	job := NewConstituentsJob(src, repo, logger.Nop())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, "constituents_refresh", job.Name())
	require.Len(t, repo.rows, 2)
	assert.Equal(t, "2317", repo.rows[1].Code)
}
