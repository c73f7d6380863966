package calendar

import (
	"sort"
	"time"

	"studiodesk/internal/models"
)

// DayView is one rendered calendar day: resolved availability plus the laid
// out events of that date.
type DayView struct {
	Availability models.DayAvailability `json:"availability"`
	Events       []PlacedEvent          `json:"events"`
}

// ProjectBookings converts bookings into calendar events. Titles come from the
// service catalog lookup; unknown services fall back to the booking location
// free-text. Cancelled bookings stay visible so the day view shows history.
func ProjectBookings(bookings []models.Booking, serviceName func(id int64) (name, category string)) []models.CalendarEvent {
	events := make([]models.CalendarEvent, 0, len(bookings))
	for i := range bookings {
		title, category := "", ""
		if serviceName != nil {
			title, category = serviceName(bookings[i].ServiceID)
		}
		if title == "" {
			title = bookings[i].Location
		}
		events = append(events, models.EventFromBooking(&bookings[i], title, category))
	}
	return events
}

// FilterDate keeps only events on the given calendar date.
func FilterDate(events []models.CalendarEvent, date time.Time) []models.CalendarEvent {
	y, m, d := date.Date()
	var out []models.CalendarEvent
	for _, ev := range events {
		ey, em, ed := ev.Date.Date()
		if ey == y && em == m && ed == d {
			out = append(out, ev)
		}
	}
	return out
}

// GroupByDate splits events into per-date buckets keyed "YYYY-MM-DD",
// each bucket sorted by start time. Used by the week view.
func GroupByDate(events []models.CalendarEvent) map[string][]models.CalendarEvent {
	grouped := make(map[string][]models.CalendarEvent)
	for _, ev := range events {
		key := ev.Date.Format("2006-01-02")
		grouped[key] = append(grouped[key], ev)
	}
	for key := range grouped {
		bucket := grouped[key]
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].StartsAt.Before(bucket[j].StartsAt)
		})
		grouped[key] = bucket
	}
	return grouped
}
