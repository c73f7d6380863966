package notify

import (
	"context"
	"fmt"
	"io"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramAlerter posts booking lifecycle alerts to the studio's staff chat.
// It is an operational channel, separate from client-facing notifications,
// and always best-effort.
type TelegramAlerter struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *zerolog.Logger
}

// NewTelegramAlerter creates the alerter. An empty token yields a nil
// alerter, which every method treats as a no-op.
func NewTelegramAlerter(token string, chatID int64, logger *zerolog.Logger) (*TelegramAlerter, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramAlerter{bot: bot, chatID: chatID, logger: logger}, nil
}

// Alert sends a plain-text message to the staff chat.
func (a *TelegramAlerter) Alert(_ context.Context, text string) error {
	if a == nil || a.bot == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(a.chatID, text)
	if _, err := a.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// SendDocument uploads a file to the staff chat. Used for the monthly
// sync-log report.
func (a *TelegramAlerter) SendDocument(_ context.Context, filename string, data io.Reader, caption string) error {
	if a == nil || a.bot == nil {
		return nil
	}
	doc := tgbotapi.NewDocument(a.chatID, tgbotapi.FileReader{Name: filename, Reader: data})
	doc.Caption = caption
	if _, err := a.bot.Send(doc); err != nil {
		return fmt.Errorf("telegram send document: %w", err)
	}
	return nil
}

// FormatBookingAlert renders a staff alert line for a lifecycle change.
func FormatBookingAlert(kind Kind, bookingID int64, data TemplateData) string {
	switch kind {
	case KindReschedule:
		return fmt.Sprintf("Booking #%d rescheduled: %s -> %s (%s, %s)",
			bookingID, data.OldStartsAt, data.StartsAt, data.ClientName, data.ServiceName)
	case KindCancellation:
		if data.Reason != "" {
			return fmt.Sprintf("Booking #%d cancelled: %s (%s): %s",
				bookingID, data.ClientName, data.ServiceName, data.Reason)
		}
		return fmt.Sprintf("Booking #%d cancelled: %s (%s)", bookingID, data.ClientName, data.ServiceName)
	default:
		return fmt.Sprintf("Booking #%d %s: %s, %s at %s",
			bookingID, kind, data.ClientName, data.ServiceName, data.StartsAt)
	}
}
