package booking

import "time"

// ShouldNotifyReschedule reports whether an edit moved the booking's start
// time. Compared at full timestamp precision with no grace window: any
// difference, however small, owes the client a reschedule notification.
// Only meaningful on edits; creation never triggers it.
func ShouldNotifyReschedule(oldStartsAt, newStartsAt time.Time) bool {
	return !oldStartsAt.Equal(newStartsAt)
}
