// Package notify delivers fire-and-forget user notifications about sync
// outcomes. Delivery is best effort and never required for correctness.
package notify

import "log/slog"

// Notifier delivers a single user-facing notification.
type Notifier interface {
	Notify(title, body string)
}

type logNotifier struct {
	logger *slog.Logger
}

// NewLog returns a Notifier that writes notifications to the structured log.
// A desktop shell replaces this with a real toast implementation.
func NewLog(logger *slog.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Notify(title, body string) {
	n.logger.Info("Notification", "title", title, "body", body)
}

type nopNotifier struct{}

// NewNop returns a Notifier that discards everything, used by tests.
func NewNop() Notifier {
	return &nopNotifier{}
}

func (nopNotifier) Notify(_, _ string) {}
