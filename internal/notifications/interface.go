package notifications

import "context"

// Alert levels
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notifier defines the interface for notification services
type Notifier interface {
	// SendAlert sends an alert with the specified level and message
	SendAlert(ctx context.Context, level, message string) error
}

// NopNotifier drops every alert
type NopNotifier struct{}

func (NopNotifier) SendAlert(ctx context.Context, level, message string) error {
	return nil
}
