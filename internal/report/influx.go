package report

import (
	"context"
	"fmt"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/pkg/config"
)

// InfluxMeasurement is the measurement name of signal points
const InfluxMeasurement = "signal"

// InfluxSink writes one point per report row, stamped at the bar date
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInfluxSink creates a blocking-write client for cfg.Org/cfg.Bucket
func NewInfluxSink(cfg config.InfluxConfig, timeout time.Duration) *InfluxSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetHTTPRequestTimeout(uint(timeout.Seconds())).
			SetLogLevel(0),
	)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

// Name implements contracts.ReportSink
func (s *InfluxSink) Name() string { return "influx" }

// Health checks the server
func (s *InfluxSink) Health(ctx context.Context) error {
	health, err := s.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("influx health: %w", err)
	}
	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return fmt.Errorf("influx health check failed: %s", msg)
	}
	return nil
}

// Write implements contracts.ReportSink
func (s *InfluxSink) Write(ctx context.Context, r *contracts.ScanReport) error {
	points := Points(r)
	if len(points) == 0 {
		return nil
	}
	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write points: %w", err)
	}
	return nil
}

// Close releases the client
func (s *InfluxSink) Close() {
	s.client.Close()
}

// Points converts report rows. Undefined indicators are left out of the fields.
// Rows are keyed by their position in the report so a code listed twice in
// the watchlist yields two series instead of one overwriting the other.
func Points(r *contracts.ScanReport) []*write.Point {
	if r == nil {
		return nil
	}
	points := make([]*write.Point, 0, len(r.Rows))
	for i, row := range r.Rows {
		fields := map[string]interface{}{
			"close":  row.Close,
			"run_id": r.RunID,
		}
		if row.K.Valid {
			fields["k"] = row.K.Float64
		}
		if row.D.Valid {
			fields["d"] = row.D.Float64
		}
		if row.RSI.Valid {
			fields["rsi"] = row.RSI.Float64
		}

		points = append(points, influxdb2.NewPoint(
			InfluxMeasurement,
			map[string]string{
				"code":     row.Code,
				"signal":   row.Signal.String(),
				"position": strconv.Itoa(i),
			},
			fields,
			row.Date,
		))
	}
	return points
}
