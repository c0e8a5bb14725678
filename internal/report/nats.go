package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/pkg/logger"
)

const natsFlushTimeout = 5 * time.Second

// NATSSink publishes each report as one JSON message
type NATSSink struct {
	conn    *nats.Conn
	subject string
	logger  *logger.Logger
}

// NewNATSSink connects to url. Reconnects are handled by the client.
func NewNATSSink(url, subject string, log *logger.Logger) (*NATSSink, error) {
	l := log.WithModule("report.nats")

	opts := []nats.Option{
		nats.Name("twscan"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				l.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			l.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			l.Debug("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &NATSSink{conn: conn, subject: subject, logger: l}, nil
}

// Name implements contracts.ReportSink
func (s *NATSSink) Name() string { return "nats" }

// Write implements contracts.ReportSink
func (s *NATSSink) Write(ctx context.Context, r *contracts.ScanReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := s.conn.Publish(s.subject, data); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	// FlushWithContext refuses a context without a deadline
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, natsFlushTimeout)
		defer cancel()
	}
	if err := s.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"subject": s.subject,
		"rows":    r.Count(),
		"bytes":   len(data),
	}).Debug("Report published")
	return nil
}

// Close drains pending messages and closes the connection
func (s *NATSSink) Close() error {
	return s.conn.Drain()
}
