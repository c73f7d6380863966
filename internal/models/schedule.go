package models

import "time"

// BusinessHourRule is one weekly recurring open/closed rule.
// DayOfWeek is Monday-first: Monday = 1 ... Sunday = 7.
// At most one rule exists per day of week per staff scope.
type BusinessHourRule struct {
	ID        int64     `json:"id"`
	StaffID   *int64    `json:"staff_id,omitempty"`
	DayOfWeek int       `json:"day_of_week"`
	IsOpen    bool      `json:"is_open"`
	OpensAt   string    `json:"opens_at,omitempty"`  // "HH:MM", empty when closed
	ClosesAt  string    `json:"closes_at,omitempty"` // "HH:MM", empty when closed
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClosureType distinguishes one-off closures.
type ClosureType string

const (
	ClosureDayOff   ClosureType = "day_off"
	ClosureVacation ClosureType = "vacation"
)

// ClosureRange is a one-off blocked date interval, bounds inclusive.
// StartDate and EndDate are equal for single-day closures.
type ClosureRange struct {
	ID        int64       `json:"id"`
	StaffID   *int64      `json:"staff_id,omitempty"`
	Type      ClosureType `json:"type"`
	StartDate time.Time   `json:"start_date"`
	EndDate   time.Time   `json:"end_date"`
	Label     string      `json:"label,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// ContainsDate reports whether date falls within the closure's inclusive bounds.
// Time-of-day components are ignored.
func (c *ClosureRange) ContainsDate(date time.Time) bool {
	d := dateOnly(date)
	return !d.Before(dateOnly(c.StartDate)) && !d.After(dateOnly(c.EndDate))
}

// DefaultLabel returns the label to display for a blocked day when the closure
// itself carries none.
func (c *ClosureRange) DefaultLabel() string {
	if c.Label != "" {
		return c.Label
	}
	if c.Type == ClosureVacation {
		return "Vacation"
	}
	return "Day Off"
}

// LunchBreak is the optional singleton lunch window per staff scope.
// When Enabled is false it contributes no blocked interval.
type LunchBreak struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start,omitempty"` // "HH:MM"
	End     string `json:"end,omitempty"`   // "HH:MM"
}

// DayAvailability is the resolved open/closed state for one calendar date.
// It is derived on every query and never persisted.
type DayAvailability struct {
	Date       time.Time `json:"date"`
	IsOpen     bool      `json:"is_open"`
	OpensAt    string    `json:"opens_at,omitempty"`  // empty when closed
	ClosesAt   string    `json:"closes_at,omitempty"` // empty when closed
	IsBlocked  bool      `json:"is_blocked"`
	BlockLabel string    `json:"block_label,omitempty"`
	LunchStart string    `json:"lunch_start,omitempty"`
	LunchEnd   string    `json:"lunch_end,omitempty"`
}

// MondayFirstWeekday converts a time.Time weekday to the Monday-first
// convention used by BusinessHourRule: Monday = 1 ... Sunday = 7.
func MondayFirstWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
