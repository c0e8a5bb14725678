package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/data"
	"github.com/wonny/twscan/internal/notify"
	"github.com/wonny/twscan/internal/report"
	"github.com/wonny/twscan/internal/scanner"
	"github.com/wonny/twscan/pkg/logger"
)

type fakeFetcher struct {
	series map[string][]contracts.RawBar
	block  chan struct{} // when set, FetchBars waits on it
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) FetchBars(ctx context.Context, code string, from, to time.Time) ([]contracts.RawBar, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	bars, ok := f.series[code]
	if !ok {
		return nil, errors.New("404")
	}
	return bars, nil
}

func closes(fn func(i int) float64, n int) []contracts.RawBar {
	start := time.Date(2024, 1, 1, 13, 30, 0, 0, time.UTC)
	out := make([]contracts.RawBar, n)
	for i := range out {
		c := fn(i)
		out[i] = contracts.RawBar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return out
}

type recordSink struct {
	mu      sync.Mutex
	reports []*contracts.ScanReport
	err     error
}

func (s *recordSink) Name() string { return "record" }

func (s *recordSink) Write(ctx context.Context, r *contracts.ScanReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return s.err
}

type recordNotifier struct {
	texts []string
}

func (n *recordNotifier) Name() string { return "record" }

func (n *recordNotifier) Send(ctx context.Context, text string) error {
	n.texts = append(n.texts, text)
	return nil
}

type fixture struct {
	orch     *Orchestrator
	sink     *recordSink
	notifier *recordNotifier
	fetcher  *fakeFetcher
}

func newFixture(codes ...string) *fixture {
	fetcher := &fakeFetcher{series: map[string][]contracts.RawBar{
		"2317": closes(func(i int) float64 { return 200 - float64(i) }, 40), // RED
		"1101": closes(func(int) float64 { return 100 }, 40),                // YELLOW
	}}
	sink := &recordSink{}
	n := &recordNotifier{}
	log := logger.Nop()

	sc := scanner.New(fetcher, scanner.Config{LookbackDays: 365}, log)
	orch := NewOrchestrator(
		data.NewStaticSource(codes, nil),
		sc,
		report.NewWriter(log, nil, sink),
		notify.NewDispatcher(log, nil, n),
		log,
		WithLocation(time.UTC),
	)
	return &fixture{orch: orch, sink: sink, notifier: n, fetcher: fetcher}
}

func TestRun_FullCycle(t *testing.T) {
	f := newFixture("1101", "2317", "9999")

	result, err := f.orch.Run(context.Background(), RunConfig{})
	require.NoError(t, err)

	assert.Equal(t, []string{StageConfig, StageScan, StageReport, StageNotify}, result.CompletedStages)
	assert.Equal(t, 2, result.Summary.Total)
	assert.Equal(t, 1, result.Summary.Skipped)
	assert.NotEmpty(t, result.RunID)

	require.Len(t, f.sink.reports, 1)
	assert.Equal(t, "2317", f.sink.reports[0].Rows[0].Code)

	require.Len(t, f.notifier.texts, 1)
	assert.Contains(t, f.notifier.texts[0], "🔴 紅燈 (留意賣點): 2317")

	latest, err := f.orch.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.RunID, latest.RunID)
}

func TestRun_EmptyReportSkipsSinksAndNotify(t *testing.T) {
	f := newFixture("9998", "9999")

	result, err := f.orch.Run(context.Background(), RunConfig{})
	require.NoError(t, err)

	assert.Equal(t, []string{StageConfig, StageScan}, result.CompletedStages)
	assert.Empty(t, f.sink.reports)
	assert.Empty(t, f.notifier.texts)

	latest, err := f.orch.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestRun_DryRunAndCodeOverride(t *testing.T) {
	f := newFixture("9999")

	var seen []string
	result, err := f.orch.Run(context.Background(), RunConfig{
		Codes:    []string{"1101"},
		DryRun:   true,
		Progress: func(p scanner.Progress) { seen = append(seen, p.Code) },
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"1101"}, seen)
	assert.Equal(t, []string{StageConfig, StageScan, StageReport}, result.CompletedStages)
	assert.Empty(t, f.notifier.texts)
	assert.Len(t, f.sink.reports, 1)
}

func TestRun_SinkErrorDoesNotFail(t *testing.T) {
	f := newFixture("1101")
	f.sink.err = errors.New("disk full")

	result, err := f.orch.Run(context.Background(), RunConfig{})
	require.NoError(t, err)

	require.Error(t, result.SinkErr)
	assert.True(t, strings.Contains(result.SinkErr.Error(), "disk full"))
	assert.Len(t, f.notifier.texts, 1)
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	f := newFixture("1101")
	f.fetcher.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Run(context.Background(), RunConfig{})
		done <- err
	}()

	require.Eventually(t, f.orch.Running, time.Second, 5*time.Millisecond)

	_, err := f.orch.Run(context.Background(), RunConfig{})
	assert.ErrorIs(t, err, ErrScanInProgress)

	close(f.fetcher.block)
	require.NoError(t, <-done)
	assert.False(t, f.orch.Running())
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture("1101", "2317")
	f.fetcher.block = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.orch.Run(ctx, RunConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, result.CompletedStages, StageScan)
	assert.Empty(t, f.sink.reports)
}
