package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/metrics"
	"github.com/wonny/twscan/pkg/logger"
)

// Dispatcher fans a message out to every configured notifier
type Dispatcher struct {
	notifiers []contracts.Notifier
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewDispatcher creates a dispatcher. With no notifiers messages go to the log.
func NewDispatcher(log *logger.Logger, m *metrics.Metrics, notifiers ...contracts.Notifier) *Dispatcher {
	if len(notifiers) == 0 {
		notifiers = []contracts.Notifier{NewLogNotifier(log)}
	}
	return &Dispatcher{
		notifiers: notifiers,
		logger:    log.WithModule("notify"),
		metrics:   m,
	}
}

// Names lists the active notifiers
func (d *Dispatcher) Names() []string {
	names := make([]string, len(d.notifiers))
	for i, n := range d.notifiers {
		names[i] = n.Name()
	}
	return names
}

// Send delivers text to every notifier. One failing notifier does not stop
// the others; all failures are joined into the returned error.
func (d *Dispatcher) Send(ctx context.Context, text string) error {
	var errs []error
	for _, n := range d.notifiers {
		err := n.Send(ctx, text)
		d.metrics.Notified(n.Name(), err)
		if err != nil {
			d.logger.WithError(err).WithField("notifier", n.Name()).Error("Notification failed")
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes messages to the log (no credentials configured)
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log.WithField("notifier", "log")}
}

// Name implements contracts.Notifier
func (n *LogNotifier) Name() string { return "log" }

// Send implements contracts.Notifier
func (n *LogNotifier) Send(ctx context.Context, text string) error {
	n.logger.WithField("text", text).Info("Notification")
	return nil
}
