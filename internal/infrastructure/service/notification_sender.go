package service

import (
	"context"

	"github.com/devprep-hub/devprep-engine/internal/domain/notification"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
)

// LogSender implements notification.Sender by emitting a structured
// log line per notification. The engine computes and journals
// notifications; actual delivery channels live in the client-facing
// services that tail the journal.
type LogSender struct {
	log *logger.Logger
}

// NewLogSender creates a log-backed notification sender.
func NewLogSender(log *logger.Logger) *LogSender {
	if log == nil {
		log = logger.Default()
	}
	return &LogSender{log: log.With(logger.String("component", "notifier"))}
}

// Send emits the notification.
func (s *LogSender) Send(_ context.Context, n *notification.Notification) error {
	s.log.Info("notification",
		logger.UserID(string(n.UserID)),
		logger.String("type", string(n.Type)),
		logger.String("priority", string(n.Priority)),
		logger.String("title", n.Title),
		logger.String("body", n.Body))
	return nil
}
