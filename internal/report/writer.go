package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/metrics"
	"github.com/wonny/twscan/pkg/logger"
)

// Writer delivers a report to every sink. A failing sink does not stop the others.
type Writer struct {
	sinks   []contracts.ReportSink
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewWriter creates a fan-out writer
func NewWriter(log *logger.Logger, m *metrics.Metrics, sinks ...contracts.ReportSink) *Writer {
	return &Writer{
		sinks:   sinks,
		logger:  log.WithModule("report"),
		metrics: m,
	}
}

// Add appends a sink
func (w *Writer) Add(sink contracts.ReportSink) {
	w.sinks = append(w.sinks, sink)
}

// Names lists the configured sinks in write order
func (w *Writer) Names() []string {
	names := make([]string, len(w.sinks))
	for i, s := range w.sinks {
		names[i] = s.Name()
	}
	return names
}

// Write calls every sink in order and joins their errors
func (w *Writer) Write(ctx context.Context, r *contracts.ScanReport) error {
	var errs []error
	for _, sink := range w.sinks {
		started := time.Now()
		if err := sink.Write(ctx, r); err != nil {
			w.metrics.SinkError(sink.Name())
			w.logger.WithError(err).WithField("sink", sink.Name()).Error("Report sink failed")
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		w.logger.WithFields(map[string]interface{}{
			"sink":     sink.Name(),
			"rows":     r.Count(),
			"duration": time.Since(started).String(),
		}).Debug("Report written")
	}
	return errors.Join(errs...)
}

// RepositorySink adapts a ResultRepository to a report sink
type RepositorySink struct {
	name string
	repo contracts.ResultRepository
}

// NewRepositorySink names the repository for logs and metrics
func NewRepositorySink(name string, repo contracts.ResultRepository) *RepositorySink {
	return &RepositorySink{name: name, repo: repo}
}

// Name implements contracts.ReportSink
func (s *RepositorySink) Name() string { return s.name }

// Write implements contracts.ReportSink
func (s *RepositorySink) Write(ctx context.Context, r *contracts.ScanReport) error {
	return s.repo.SaveReport(ctx, r)
}
