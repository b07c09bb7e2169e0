// Package notify shows desktop notifications.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

const title = "murmur"

// Notifier reports events to the user. The zero value is disabled.
type Notifier struct {
	enabled bool
	send    func(title, message string) error
}

// New returns a Notifier; when enabled is false every call is a no-op.
func New(enabled bool) *Notifier {
	return &Notifier{
		enabled: enabled,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// Notify shows message. Failures are logged, never returned.
func (n *Notifier) Notify(message string) {
	if n == nil || !n.enabled || n.send == nil {
		return
	}
	if err := n.send(title, message); err != nil {
		slog.Debug("desktop notification", "error", err)
	}
}
