// Package calendar projects bookings into display events and lays out
// concurrent events into non-overlapping columns.
package calendar

import (
	"sort"

	"studiodesk/internal/models"
)

// PlacedEvent is a calendar event with its assigned display column.
// Column is zero-based; Columns is the width of the whole group, shared by
// every event of the day so the grid stays uniform.
type PlacedEvent struct {
	models.CalendarEvent
	Column  int `json:"column"`
	Columns int `json:"columns"`
}

// Layout assigns each same-day event a column so that no two events sharing a
// column overlap in time. Greedy interval partitioning: events are processed
// in start order (stable, so ties keep input order) and each takes the first
// column that is free by the time it begins. The resulting column count equals
// the maximum number of simultaneously active events.
func Layout(events []models.CalendarEvent) []PlacedEvent {
	if len(events) == 0 {
		return []PlacedEvent{}
	}

	ordered := make([]models.CalendarEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartMinute() < ordered[j].StartMinute()
	})

	placed := make([]PlacedEvent, len(ordered))
	var columnEnds []int // end minute of the last event in each column

	for i, ev := range ordered {
		start := ev.StartMinute()
		end := start + ev.DurationMinutes

		col := -1
		for c, colEnd := range columnEnds {
			if colEnd <= start {
				col = c
				break
			}
		}
		if col < 0 {
			columnEnds = append(columnEnds, end)
			col = len(columnEnds) - 1
		} else {
			columnEnds[col] = end
		}

		placed[i] = PlacedEvent{CalendarEvent: ev, Column: col}
	}

	total := len(columnEnds)
	for i := range placed {
		placed[i].Columns = total
	}
	return placed
}
