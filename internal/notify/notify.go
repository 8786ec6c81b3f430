// Package notify delivers desktop notifications for lifecycle events.
package notify

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Desktop sends OS-native notifications. When disabled it degrades to log
// lines so headless runs still surface the events.
type Desktop struct {
	logger  *zap.Logger
	enabled bool

	sendFunc func(title, body string) error
}

// New creates a notifier. enabled follows the notifications config toggle.
func New(logger *zap.Logger, enabled bool) *Desktop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Desktop{
		logger:  logger,
		enabled: enabled,
		sendFunc: func(title, body string) error {
			return beeep.Notify(title, body, "")
		},
	}
}

// SetSendFunc overrides notification delivery. Primarily for testing.
func (d *Desktop) SetSendFunc(fn func(title, body string) error) {
	d.sendFunc = fn
}

// Notify shows a desktop notification.
func (d *Desktop) Notify(title, body string) error {
	if !d.enabled {
		d.logger.Debug("Notification suppressed",
			zap.String("title", title),
			zap.String("body", body))
		return nil
	}

	if err := d.sendFunc(title, body); err != nil {
		d.logger.Warn("Failed to deliver desktop notification",
			zap.String("title", title),
			zap.Error(err))
		return err
	}
	return nil
}
