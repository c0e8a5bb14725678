package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/data"
	"github.com/wonny/twscan/internal/notify"
	"github.com/wonny/twscan/internal/report"
	"github.com/wonny/twscan/internal/scanner"
	"github.com/wonny/twscan/pkg/logger"
	"github.com/wonny/twscan/pkg/redis"
)

// ErrScanInProgress is returned when a run is requested while another is active
var ErrScanInProgress = errors.New("scan already in progress")

// Stage names recorded in RunResult.CompletedStages
const (
	StageConfig = "config"
	StageScan   = "scan"
	StageReport = "report"
	StageNotify = "notify"
)

// Orchestrator runs one daily cycle: config → scan → report sinks → notify
// ⭐ SSOT: 일일 실행 흐름 조율은 여기서만
type Orchestrator struct {
	source     contracts.ConfigSource
	scanner    *scanner.Scanner
	writer     *report.Writer
	dispatcher *notify.Dispatcher
	cache      *redis.Cache
	history    contracts.ResultRepository // optional, read by Latest
	location   *time.Location
	footer     string
	onComplete func(*contracts.ScanReport)
	logger     *logger.Logger

	running sync.Mutex
	active  atomic.Bool

	mu     sync.RWMutex
	latest *contracts.ScanReport
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithCache mirrors the latest report into Redis
func WithCache(c *redis.Cache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithHistory lets Latest fall back to persisted results after a restart
func WithHistory(repo contracts.ResultRepository) Option {
	return func(o *Orchestrator) { o.history = repo }
}

// WithLocation sets the zone used for the digest date (default Asia/Taipei)
func WithLocation(loc *time.Location) Option {
	return func(o *Orchestrator) { o.location = loc }
}

// WithFooter replaces the digest footer
func WithFooter(footer string) Option {
	return func(o *Orchestrator) { o.footer = footer }
}

// WithOnComplete is called with every finished scan, including empty ones
func WithOnComplete(fn func(*contracts.ScanReport)) Option {
	return func(o *Orchestrator) { o.onComplete = fn }
}

// RunConfig holds per-run overrides
type RunConfig struct {
	Codes    []string // replaces the configured list when non-empty
	DryRun   bool     // skip notification
	Progress func(scanner.Progress)
}

// RunResult holds the outcome of a run
type RunResult struct {
	RunID           string
	Report          *contracts.ScanReport
	Summary         scanner.Summary
	CompletedStages []string
	SinkErr         error
	NotifyErr       error
	Duration        time.Duration
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	source contracts.ConfigSource,
	sc *scanner.Scanner,
	writer *report.Writer,
	dispatcher *notify.Dispatcher,
	log *logger.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		source:     source,
		scanner:    sc,
		writer:     writer,
		dispatcher: dispatcher,
		location:   time.UTC,
		logger:     log.WithModule("pipeline"),
	}
	if loc, err := time.LoadLocation("Asia/Taipei"); err == nil {
		o.location = loc
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one cycle. Sink and notifier failures are reported in the
// result and logged but do not fail the run; a scan with no rows skips both.
func (o *Orchestrator) Run(ctx context.Context, cfg RunConfig) (*RunResult, error) {
	if !o.running.TryLock() {
		return nil, ErrScanInProgress
	}
	o.active.Store(true)
	defer func() {
		o.active.Store(false)
		o.running.Unlock()
	}()

	started := time.Now()
	result := &RunResult{CompletedStages: make([]string, 0, 4)}

	// 1. Config
	codes, scanCfg, err := data.Resolve(ctx, o.source, o.logger)
	if err != nil {
		return result, fmt.Errorf("%s: %w", StageConfig, err)
	}
	if len(cfg.Codes) > 0 {
		codes = cfg.Codes
	}
	result.CompletedStages = append(result.CompletedStages, StageConfig)

	// 2. Scan
	sc := o.scanner
	if cfg.Progress != nil {
		sc = sc.With(scanner.WithProgress(cfg.Progress))
	}
	rep, err := sc.Scan(ctx, codes, scanCfg)
	if rep != nil {
		result.RunID = rep.RunID
		result.Report = rep
		result.Summary = scanner.Summarize(rep)
	}
	if err != nil {
		result.Duration = time.Since(started)
		return result, fmt.Errorf("%s: %w", StageScan, err)
	}
	result.CompletedStages = append(result.CompletedStages, StageScan)
	if o.onComplete != nil {
		o.onComplete(rep)
	}

	log := o.logger.WithRun(rep.RunID)

	if rep.Count() == 0 {
		log.WithField("skipped", len(rep.Skipped)).Warn("No instrument produced a row, skipping report and notification")
		result.Duration = time.Since(started)
		return result, nil
	}

	// 3. Report
	o.setLatest(ctx, rep)
	if err := o.writer.Write(ctx, rep); err != nil {
		result.SinkErr = err
	}
	result.CompletedStages = append(result.CompletedStages, StageReport)

	// 4. Notify
	if cfg.DryRun {
		log.Info("Dry run, notification skipped")
	} else {
		text := notify.Digest(rep, rep.FinishedAt.In(o.location), o.footer)
		if err := o.dispatcher.Send(ctx, text); err != nil {
			result.NotifyErr = err
		}
		result.CompletedStages = append(result.CompletedStages, StageNotify)
	}

	result.Duration = time.Since(started)
	log.WithFields(map[string]interface{}{
		"rows":     rep.Count(),
		"green":    result.Summary.Green,
		"red":      result.Summary.Red,
		"stages":   len(result.CompletedStages),
		"duration": result.Duration.String(),
	}).Info("Daily run completed")

	return result, nil
}

// Running reports whether a run is active
func (o *Orchestrator) Running() bool {
	return o.active.Load()
}

// Latest returns the most recent report: memory, then Redis, then the
// result repository. (nil, nil) means no run yet.
func (o *Orchestrator) Latest(ctx context.Context) (*contracts.ScanReport, error) {
	o.mu.RLock()
	latest := o.latest
	o.mu.RUnlock()
	if latest != nil {
		return latest, nil
	}

	if o.cache.Enabled() {
		var cached contracts.ScanReport
		hit, err := o.cache.Get(ctx, redis.LatestReportKey(), &cached)
		if err != nil {
			o.logger.WithError(err).Warn("Latest report cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	if o.history == nil {
		return nil, nil
	}
	stored, err := o.history.GetLatest(ctx)
	if err != nil || stored == nil {
		return nil, err
	}
	return &contracts.ScanReport{
		RunID:      stored.RunID,
		FinishedAt: stored.CreatedAt,
		Rows:       stored.Rows,
	}, nil
}

func (o *Orchestrator) setLatest(ctx context.Context, rep *contracts.ScanReport) {
	o.mu.Lock()
	o.latest = rep
	o.mu.Unlock()

	if o.cache.Enabled() {
		if err := o.cache.Set(ctx, redis.LatestReportKey(), rep, redis.TTLReport); err != nil {
			o.logger.WithError(err).Warn("Latest report cache write failed")
		}
	}
}
