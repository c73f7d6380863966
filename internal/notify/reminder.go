package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"studiodesk/internal/models"
	"studiodesk/internal/store"
)

// ReminderStore is the read surface the reminder loop needs.
type ReminderStore interface {
	ListBookings(ctx context.Context, f store.BookingFilter) ([]models.Booking, error)
	GetClient(ctx context.Context, id int64) (*models.Client, error)
	GetService(ctx context.Context, id int64) (*models.Service, error)
}

// Reminders sends a day-before notification for upcoming appointments. It
// fires once a day at a fixed local hour and covers the next calendar day.
type Reminders struct {
	store    ReminderStore
	notifier Notifier
	logger   *zerolog.Logger
	hour     int
	now      func() time.Time
}

// NewReminders creates the reminder loop. hour is the local send hour,
// 0..23; out-of-range values fall back to 9.
func NewReminders(st ReminderStore, notifier Notifier, hour int, logger *zerolog.Logger) *Reminders {
	if hour < 0 || hour > 23 {
		hour = 9
	}
	return &Reminders{
		store:    st,
		notifier: notifier,
		logger:   logger,
		hour:     hour,
		now:      time.Now,
	}
}

// Start runs the loop until ctx is cancelled.
func (r *Reminders) Start(ctx context.Context) {
	go func() {
		timer := time.NewTimer(r.untilNextRun())
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				r.SendDue(ctx)
				timer.Reset(r.untilNextRun())
			}
		}
	}()
}

func (r *Reminders) untilNextRun() time.Duration {
	now := r.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), r.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// SendDue sends reminders for every notifiable booking starting tomorrow.
func (r *Reminders) SendDue(ctx context.Context) {
	now := r.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	to := from.AddDate(0, 0, 1)

	bookings, err := r.store.ListBookings(ctx, store.BookingFilter{From: from, To: to})
	if err != nil {
		r.logger.Error().Err(err).Msg("reminder: list bookings")
		return
	}

	sent := 0
	for i := range bookings {
		b := &bookings[i]
		if !remindableStatus(b.Status) {
			continue
		}

		client, err := r.store.GetClient(ctx, b.ClientID)
		if err != nil || !client.CanNotify() {
			continue
		}

		data := TemplateData{
			ClientName: client.Name,
			StartsAt:   b.StartsAt.Format("2006-01-02 15:04"),
			Location:   b.Location,
			TotalCents: b.TotalCents,
		}
		if svc, err := r.store.GetService(ctx, b.ServiceID); err == nil {
			data.ServiceName = svc.Name
		}

		if err := r.notifier.Send(ctx, KindReminder, client.Email, data); err != nil {
			r.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("reminder: send")
			continue
		}
		sent++
	}

	r.logger.Info().Int("sent", sent).Time("for_date", from).Msg("reminders dispatched")
}

func remindableStatus(s models.BookingStatus) bool {
	return s == models.StatusPending || s == models.StatusConfirmed
}
