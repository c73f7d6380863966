package models

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusInProgress BookingStatus = "in_progress"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"
	StatusNoShow     BookingStatus = "no_show"
)

// Valid reports whether s is a known status value.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// IsTerminal reports whether a booking in this status can still transition.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Booking represents one scheduled appointment.
// DurationMinutes and TotalCents are snapshots taken at creation/edit time;
// they are never recomputed from the service catalog afterwards.
type Booking struct {
	ID                 int64         `json:"id"`
	ClientID           int64         `json:"client_id"`
	StaffID            *int64        `json:"staff_id,omitempty"`
	ServiceID          int64         `json:"service_id"`
	Status             BookingStatus `json:"status"`
	StartsAt           time.Time     `json:"starts_at"`
	DurationMinutes    int           `json:"duration_minutes"`
	TotalCents         int64         `json:"total_cents"`
	Location           string        `json:"location,omitempty"`
	ClientNotes        string        `json:"client_notes,omitempty"`
	StaffNotes         string        `json:"staff_notes,omitempty"`
	PaymentOrderRef    string        `json:"payment_order_ref,omitempty"`
	ConfirmedAt        *time.Time    `json:"confirmed_at,omitempty"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	Version            int64         `json:"version"`
}

// EndsAt returns the exclusive end of the appointment interval.
func (b *Booking) EndsAt() time.Time {
	return b.StartsAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// OverlapsWith checks if this booking overlaps with another booking.
// Uses half-open interval [start, end) semantics - end boundary is exclusive.
func (b *Booking) OverlapsWith(other *Booking) bool {
	return b.StartsAt.Before(other.EndsAt()) && other.StartsAt.Before(b.EndsAt())
}

// OnDate reports whether the booking starts on the given calendar date.
func (b *Booking) OnDate(date time.Time) bool {
	y1, m1, d1 := b.StartsAt.Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
