package notification

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// KindApplicationDecision announces an application outcome to the applicant.
	KindApplicationDecision = "application_decision"
	// KindAccountVerified confirms a newly verified online banking account.
	KindAccountVerified = "account_verified"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
// Destinations are masked since they carry applicant e-mail addresses.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.LogAttrs(ctx, slog.LevelInfo, "notification",
		slog.String("kind", message.Kind),
		slog.String("destination", MaskDestination(message.Destination)),
		slog.String("body", message.Body),
	)
	return nil
}

// MaskDestination keeps the first character and domain of an e-mail address.
func MaskDestination(dest string) string {
	at := strings.LastIndex(dest, "@")
	if at <= 0 {
		return "***"
	}
	return dest[:1] + "***" + dest[at:]
}
