package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/twscan/internal/contracts"
)

// Metrics holds all Prometheus metrics for the scanner.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ScansTotal        *prometheus.CounterVec // labels: result=ok|cancelled
	InstrumentsTotal  prometheus.Counter
	SkippedTotal      *prometheus.CounterVec // labels: reason
	SignalsTotal      *prometheus.CounterVec // labels: signal
	FetchDuration     *prometheus.HistogramVec
	ComputeDuration   prometheus.Histogram
	LastScanTimestamp prometheus.Gauge
	SinkErrorsTotal   *prometheus.CounterVec // labels: sink
	NotifyTotal       *prometheus.CounterVec // labels: notifier, result
}

// New registers and returns all scanner metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "twscan_scans_total",
			Help: "Completed scans by outcome",
		}, []string{"result"}),
		InstrumentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "twscan_instruments_scanned_total",
			Help: "Instruments that produced a report row",
		}),
		SkippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "twscan_instruments_skipped_total",
			Help: "Instruments left out of a report, by reason",
		}, []string{"reason"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "twscan_signals_total",
			Help: "Classified rows by signal",
		}, []string{"signal"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "twscan_fetch_duration_seconds",
			Help:    "Bar retrieval latency per instrument",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"source"}),
		ComputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "twscan_compute_duration_seconds",
			Help:    "Normalize + indicators + classify latency per instrument",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		LastScanTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "twscan_last_scan_timestamp_seconds",
			Help: "Unix time the last scan finished",
		}),
		SinkErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "twscan_sink_errors_total",
			Help: "Report sink write failures",
		}, []string{"sink"}),
		NotifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "twscan_notify_total",
			Help: "Notification deliveries by notifier and result",
		}, []string{"notifier", "result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ScansTotal,
		m.InstrumentsTotal,
		m.SkippedTotal,
		m.SignalsTotal,
		m.FetchDuration,
		m.ComputeDuration,
		m.LastScanTimestamp,
		m.SinkErrorsTotal,
		m.NotifyTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry (tests, custom collectors).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFetch records one retrieval.
func (m *Metrics) ObserveFetch(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveCompute records the engine time of one instrument.
func (m *Metrics) ObserveCompute(d time.Duration) {
	if m == nil {
		return
	}
	m.ComputeDuration.Observe(d.Seconds())
}

// Skipped counts an instrument left out of the report.
func (m *Metrics) Skipped(reason string) {
	if m == nil {
		return
	}
	m.SkippedTotal.WithLabelValues(reason).Inc()
}

// Classified counts one report row.
func (m *Metrics) Classified(signal contracts.Signal) {
	if m == nil {
		return
	}
	m.InstrumentsTotal.Inc()
	m.SignalsTotal.WithLabelValues(signal.String()).Inc()
}

// ScanFinished records the outcome of a scan.
func (m *Metrics) ScanFinished(result string, at time.Time) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(result).Inc()
	m.LastScanTimestamp.Set(float64(at.Unix()))
}

// SinkError counts a failed report write.
func (m *Metrics) SinkError(sink string) {
	if m == nil {
		return
	}
	m.SinkErrorsTotal.WithLabelValues(sink).Inc()
}

// Notified records a notification attempt.
func (m *Metrics) Notified(notifier string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.NotifyTotal.WithLabelValues(notifier, result).Inc()
}
