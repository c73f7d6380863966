// Package notify defines the outbound notification contract and the
// operational channels the studio uses. Actual email rendering and delivery
// live behind the Notifier interface; this package ships a logging fallback,
// a rate-limited decorator and a Telegram staff-alert channel.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Kind identifies a notification template.
type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindCancellation Kind = "cancellation"
	KindCompletion   Kind = "completion"
	KindNoShow       Kind = "no_show"
	KindReschedule   Kind = "reschedule"
	KindReminder     Kind = "reminder"
)

// TemplateData carries the fields notification templates interpolate.
type TemplateData struct {
	ClientName  string `json:"client_name"`
	ServiceName string `json:"service_name"`
	StartsAt    string `json:"starts_at"`
	OldStartsAt string `json:"old_starts_at,omitempty"`
	Location    string `json:"location,omitempty"`
	Reason      string `json:"reason,omitempty"`
	TotalCents  int64  `json:"total_cents,omitempty"`
}

// Notifier sends a notification of the given kind to the recipient.
// Implementations surface delivery failures as errors; the caller decides
// whether those failures matter.
type Notifier interface {
	Send(ctx context.Context, kind Kind, recipientEmail string, data TemplateData) error
}

// LogNotifier records would-be notifications in the log. Used when no real
// delivery backend is configured.
type LogNotifier struct {
	logger *zerolog.Logger
}

// NewLogNotifier creates a notifier that only logs.
func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the notification and reports success.
func (n *LogNotifier) Send(_ context.Context, kind Kind, recipientEmail string, data TemplateData) error {
	n.logger.Info().
		Str("kind", string(kind)).
		Str("recipient", recipientEmail).
		Str("starts_at", data.StartsAt).
		Msg("notification dispatched")
	return nil
}
