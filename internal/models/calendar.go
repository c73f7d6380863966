package models

import "time"

// CalendarEvent is the display projection of a booking. It is never
// independently persisted; BookingID points back at the source record.
type CalendarEvent struct {
	ID              int64     `json:"id"`
	BookingID       int64     `json:"booking_id"`
	Title           string    `json:"title"`
	Category        string    `json:"category,omitempty"`
	Date            time.Time `json:"date"`
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes"`
	StaffID         *int64    `json:"staff_id,omitempty"`
	ClientID        int64     `json:"client_id,omitempty"`
	Location        string    `json:"location,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

// StartMinute returns the event start as minutes since midnight.
func (e *CalendarEvent) StartMinute() int {
	return e.StartsAt.Hour()*60 + e.StartsAt.Minute()
}

// EventFromBooking projects a booking into its calendar representation.
func EventFromBooking(b *Booking, title, category string) CalendarEvent {
	return CalendarEvent{
		ID:              b.ID,
		BookingID:       b.ID,
		Title:           title,
		Category:        category,
		Date:            dateOnly(b.StartsAt),
		StartsAt:        b.StartsAt,
		DurationMinutes: b.DurationMinutes,
		StaffID:         b.StaffID,
		ClientID:        b.ClientID,
		Location:        b.Location,
		Notes:           b.ClientNotes,
	}
}
