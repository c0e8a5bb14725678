package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/data"
	"github.com/wonny/twscan/pkg/logger"
)

// ConstituentSource returns the current index constituents
type ConstituentSource interface {
	Fetch(ctx context.Context) []contracts.Stock
}

// ConstituentsJob adds new Taiwan 50 members to the watch list weekly
type ConstituentsJob struct {
	source ConstituentSource
	repo   contracts.StockRepository
	logger *logger.Logger
}

// NewConstituentsJob creates a new constituents refresh job
func NewConstituentsJob(source ConstituentSource, repo contracts.StockRepository, log *logger.Logger) *ConstituentsJob {
	return &ConstituentsJob{
		source: source,
		repo:   repo,
		logger: log,
	}
}

// Name returns the job name
func (j *ConstituentsJob) Name() string {
	return "constituents_refresh"
}

// Schedule returns the cron schedule (Mondays 08:00, before the open)
func (j *ConstituentsJob) Schedule() string {
	return "0 0 8 * * 1"
}

// Run executes the refresh
func (j *ConstituentsJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled constituents refresh")

	added, err := data.AddConstituents(ctx, j.repo, j.source.Fetch(ctx))
	if err != nil {
		return fmt.Errorf("constituents refresh: %w", err)
	}

	codes := make([]string, len(added))
	for i, s := range added {
		codes[i] = s.Code
	}
	j.logger.WithFields(map[string]interface{}{
		"added": len(added),
		"codes": codes,
	}).Info("Constituents refresh completed")

	return nil
}
