package jobs

import (
	"context"
	"errors"

	"github.com/wonny/twscan/internal/pipeline"
	"github.com/wonny/twscan/pkg/logger"
)

// Runner is the part of the pipeline the job needs
type Runner interface {
	Run(ctx context.Context, cfg pipeline.RunConfig) (*pipeline.RunResult, error)
}

// DailyScanJob runs the daily scan → report → notify cycle
// ⭐ SSOT: 일일 스캔 스케줄은 이 Job에서만
type DailyScanJob struct {
	runner   Runner
	schedule string
	logger   *logger.Logger
}

// NewDailyScanJob creates a new daily scan job. schedule has six fields.
func NewDailyScanJob(runner Runner, schedule string, log *logger.Logger) *DailyScanJob {
	if schedule == "" {
		schedule = "0 40 13 * * 1-5" // weekdays after the 13:30 close
	}
	return &DailyScanJob{
		runner:   runner,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *DailyScanJob) Name() string {
	return "daily_scan"
}

// Schedule returns the cron schedule
func (j *DailyScanJob) Schedule() string {
	return j.schedule
}

// Run executes one cycle. Only config and scan failures are returned, so a
// retry never sends the digest twice.
func (j *DailyScanJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled daily scan")

	result, err := j.runner.Run(ctx, pipeline.RunConfig{})
	if errors.Is(err, pipeline.ErrScanInProgress) {
		j.logger.Warn("Daily scan skipped, another scan is running")
		return nil
	}
	if err != nil {
		return err
	}

	fields := map[string]interface{}{
		"run_id":  result.RunID,
		"total":   result.Summary.Total,
		"green":   result.Summary.Green,
		"red":     result.Summary.Red,
		"skipped": result.Summary.Skipped,
	}
	if result.SinkErr != nil {
		fields["sink_error"] = result.SinkErr.Error()
	}
	if result.NotifyErr != nil {
		fields["notify_error"] = result.NotifyErr.Error()
	}
	j.logger.WithFields(fields).Info("Scheduled daily scan completed")

	return nil
}
