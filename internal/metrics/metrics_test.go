package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/twscan/internal/contracts"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Classified(contracts.SignalGreen)
	m.Classified(contracts.SignalRed)
	m.Classified(contracts.SignalRed)
	m.Skipped("retrieval")
	m.ScanFinished("ok", time.Unix(1700000000, 0))
	m.Notified("line", nil)
	m.Notified("line", errors.New("boom"))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.InstrumentsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SignalsTotal.WithLabelValues("RED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkippedTotal.WithLabelValues("retrieval")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastScanTimestamp))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotifyTotal.WithLabelValues("line", "error")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Classified(contracts.SignalGreen)
		m.Skipped("empty")
		m.ObserveFetch("yahoo", time.Second)
		m.ObserveCompute(time.Millisecond)
		m.ScanFinished("ok", time.Now())
		m.SinkError("csv")
		m.Notified("telegram", nil)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Classified(contracts.SignalYellow)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), `twscan_signals_total{signal="YELLOW"} 1`))
}

func TestNew_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
