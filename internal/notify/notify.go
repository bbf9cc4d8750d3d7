// Package notify delivers run summaries to operators. Notification
// failures are logged and swallowed: a broken messenger must never
// fail a pipeline run.
package notify

import (
	"context"

	"github.com/mgh3326/rent-radar/internal/logger"
)

// Notifier sends an operator-facing message. Send reports delivery
// success but implementations never return an error to the caller.
type Notifier interface {
	Send(ctx context.Context, title, message string) bool
}

// NopNotifier discards messages. Used when no channel is configured.
type NopNotifier struct{}

// Send reports success without delivering anything.
func (NopNotifier) Send(context.Context, string, string) bool { return true }

// LogNotifier writes messages to the log instead of an external
// channel.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Send logs the message at info level.
func (n *LogNotifier) Send(_ context.Context, title, message string) bool {
	n.log.Info("notification",
		logger.String("title", title),
		logger.String("message", message))
	return true
}
