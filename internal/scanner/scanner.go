package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/indicators"
	"github.com/wonny/twscan/internal/metrics"
	"github.com/wonny/twscan/internal/s0_data"
	"github.com/wonny/twscan/internal/s2_signals"
	"github.com/wonny/twscan/internal/strategyconfig"
	"github.com/wonny/twscan/pkg/logger"
)

// Skip reasons (also used as metric labels)
const (
	ReasonRetrieval   = "retrieval"
	ReasonEmpty       = "empty"
	ReasonInvalidData = "invalid_data"
)

// Config holds orchestration settings
type Config struct {
	LookbackDays int           // retrieval window ending now
	Spacing      time.Duration // minimum gap between retrievals, 0 = none
}

// DefaultConfig returns one year of history and one retrieval per second
func DefaultConfig() Config {
	return Config{LookbackDays: 365, Spacing: time.Second}
}

// Progress is emitted once per instrument as the scan advances
type Progress struct {
	Index   int // 0-based position in the input list
	Total   int
	Code    string
	Row     *contracts.SignalResult
	Skipped *contracts.SkippedInstrument
}

// Option customizes a Scanner
type Option func(*Scanner)

// WithMetrics records per-instrument metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithClock overrides time.Now (tests)
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// WithProgress registers a callback invoked after each instrument
func WithProgress(fn func(Progress)) Option {
	return func(s *Scanner) { s.progress = fn }
}

// Scanner coordinates retrieval, normalization, indicators and classification
// across an instrument list.
// ⭐ SSOT: 스캔 오케스트레이션은 여기서만
type Scanner struct {
	fetcher  contracts.BarFetcher
	limiter  *rate.Limiter
	cfg      Config
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	progress func(Progress)
}

// New creates a Scanner. The fetcher is owned by the caller.
func New(fetcher contracts.BarFetcher, cfg Config, log *logger.Logger, opts ...Option) *Scanner {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultConfig().LookbackDays
	}

	limit := rate.Inf
	if cfg.Spacing > 0 {
		limit = rate.Every(cfg.Spacing)
	}

	s := &Scanner{
		fetcher: fetcher,
		// burst 1: the first retrieval is immediate, later ones wait Spacing
		limiter: rate.NewLimiter(limit, 1),
		cfg:     cfg,
		logger:  log.WithModule("scanner"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// With returns a copy carrying extra options. The copy shares the
// retrieval limiter, so spacing holds across both.
func (s *Scanner) With(opts ...Option) *Scanner {
	cp := *s
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// Scan classifies every code in list order and returns the sorted report.
//
// A failing instrument is skipped and recorded in report.Skipped; it never
// aborts the scan. An invalid config aborts before any retrieval. When ctx
// is cancelled the partial report is returned together with the context error.
func (s *Scanner) Scan(ctx context.Context, codes []string, cfg contracts.ScanConfig) (*contracts.ScanReport, error) {
	params := indicators.ParamsFromConfig(cfg)
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("scan config: %w", err)
	}

	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash scan config: %w", err)
	}

	report := &contracts.ScanReport{
		RunID:      uuid.NewString(),
		StartedAt:  s.now(),
		ConfigHash: hash,
		Config:     cfg,
		Rows:       make([]contracts.SignalResult, 0, len(codes)),
	}

	log := s.logger.WithRun(report.RunID)
	log.WithFields(map[string]interface{}{
		"instruments": len(codes),
		"source":      s.fetcher.Name(),
		"config_hash": hash[:12],
	}).Info("Starting scan")

	to := s.now()
	from := to.AddDate(0, 0, -s.cfg.LookbackDays)

	var scanErr error
	for i, code := range codes {
		if err := s.limiter.Wait(ctx); err != nil {
			scanErr = contextError(ctx, err)
			break
		}

		row, skip := s.scanOne(ctx, code, cfg, params, from, to)
		if row == nil && skip == nil {
			scanErr = ctx.Err()
			break
		}

		p := Progress{Index: i, Total: len(codes), Code: code}
		if row != nil {
			report.Rows = append(report.Rows, *row)
			s.metrics.Classified(row.Signal)
			p.Row = row
		} else {
			report.Skipped = append(report.Skipped, *skip)
			p.Skipped = skip
		}
		if s.progress != nil {
			s.progress(p)
		}
	}

	SortRows(report.Rows)
	report.FinishedAt = s.now()

	result := "ok"
	if scanErr != nil {
		result = "cancelled"
	}
	s.metrics.ScanFinished(result, report.FinishedAt)

	sum := Summarize(report)
	log.WithFields(map[string]interface{}{
		"green":    sum.Green,
		"red":      sum.Red,
		"yellow":   sum.Yellow,
		"skipped":  sum.Skipped,
		"duration": report.FinishedAt.Sub(report.StartedAt).String(),
	}).Info("Scan finished")

	return report, scanErr
}

// scanOne runs fetch → normalize → compute → classify for one instrument.
// Both results are nil when ctx was cancelled during retrieval.
func (s *Scanner) scanOne(
	ctx context.Context,
	code string,
	cfg contracts.ScanConfig,
	params indicators.Params,
	from, to time.Time,
) (*contracts.SignalResult, *contracts.SkippedInstrument) {
	log := s.logger.WithStock(code)

	skip := func(reason string, err error) *contracts.SkippedInstrument {
		log.WithError(err).WithField("reason", reason).Warn("Instrument skipped")
		s.metrics.Skipped(reason)
		return &contracts.SkippedInstrument{Code: code, Reason: fmt.Sprintf("%s: %v", reason, err)}
	}

	started := time.Now()
	raw, err := s.fetcher.FetchBars(ctx, code, from, to)
	s.metrics.ObserveFetch(s.fetcher.Name(), time.Since(started))
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		var rerr *contracts.RetrievalError
		if !errors.As(err, &rerr) {
			err = &contracts.RetrievalError{Code: code, Source: s.fetcher.Name(), Err: err}
		}
		return nil, skip(ReasonRetrieval, err)
	}

	computeStarted := time.Now()
	defer func() { s.metrics.ObserveCompute(time.Since(computeStarted)) }()

	bars := s0_data.Normalize(raw)
	if len(bars) == 0 {
		return nil, skip(ReasonEmpty, contracts.ErrNoData)
	}

	set, err := indicators.Compute(bars, params)
	if err != nil {
		return nil, skip(ReasonInvalidData, err)
	}

	row, err := s2_signals.Classify(code, set, cfg)
	if err != nil {
		return nil, skip(ReasonInvalidData, err)
	}

	log.WithFields(map[string]interface{}{
		"signal": row.Signal.String(),
		"close":  row.Close,
		"bars":   len(bars),
	}).Debug("Classified")

	return &row, nil
}

// SortRows orders rows GREEN, RED, YELLOW, keeping scan order within a category.
func SortRows(rows []contracts.SignalResult) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Signal.Rank() < rows[j].Signal.Rank()
	})
}

// contextError maps a limiter error to the context error that caused it.
// rate.Limiter fails early when the wait would overrun the deadline.
func contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if _, ok := ctx.Deadline(); ok {
		return context.DeadlineExceeded
	}
	return err
}
