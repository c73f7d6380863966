// Package availability resolves weekly business hours, one-off closures and
// lunch breaks into the effective open/closed state for a calendar date.
package availability

import (
	"time"

	"studiodesk/internal/models"
)

// Resolve computes the DayAvailability for date from the weekly rules, the
// closure list and the optional lunch window. It is a pure function: absence
// of data degrades to "closed", never to an error.
func Resolve(date time.Time, rules []models.BusinessHourRule, closures []models.ClosureRange, lunch *models.LunchBreak) models.DayAvailability {
	out := models.DayAvailability{
		Date: time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()),
	}

	dayOfWeek := models.MondayFirstWeekday(date)

	var rule *models.BusinessHourRule
	for i := range rules {
		if rules[i].DayOfWeek == dayOfWeek {
			rule = &rules[i]
			break
		}
	}

	// Any matching closure blocks the day; first match supplies the label.
	var blocked *models.ClosureRange
	for i := range closures {
		if closures[i].ContainsDate(date) {
			blocked = &closures[i]
			break
		}
	}
	out.IsBlocked = blocked != nil

	out.IsOpen = rule != nil && rule.IsOpen && !out.IsBlocked
	switch {
	case out.IsOpen:
		out.OpensAt = rule.OpensAt
		out.ClosesAt = rule.ClosesAt
	case blocked != nil:
		out.BlockLabel = blocked.DefaultLabel()
	case rule == nil:
		out.BlockLabel = "Closed"
	}

	// Lunch is propagated whenever enabled; consumers ignore it on closed days.
	if lunch != nil && lunch.Enabled {
		out.LunchStart = lunch.Start
		out.LunchEnd = lunch.End
	}

	return out
}

// ResolveRange resolves every date in [start, end] inclusive, in order.
func ResolveRange(start, end time.Time, rules []models.BusinessHourRule, closures []models.ClosureRange, lunch *models.LunchBreak) []models.DayAvailability {
	var days []models.DayAvailability
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, Resolve(d, rules, closures, lunch))
	}
	return days
}
