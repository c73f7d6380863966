package api

import (
	"net/http"
	"time"

	"studiodesk/internal/calendar"
	"studiodesk/internal/metrics"
	"studiodesk/internal/models"
	"studiodesk/internal/store"
)

// handleCalendarDay renders one calendar day: resolved availability plus that
// date's bookings laid out into columns.
// GET /api/v1/calendar/day?date=YYYY-MM-DD&staff_id=N
func (s *HTTPServer) handleCalendarDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		metrics.IncAPIRequest("calendar_day", "405")
		return
	}

	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		metrics.IncAPIRequest("calendar_day", "400")
		return
	}

	staffID, err := parseOptionalStaffID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		metrics.IncAPIRequest("calendar_day", "400")
		return
	}

	day, err := s.availability.Day(r.Context(), staffID, date)
	if err != nil {
		s.logger.Error().Err(err).Msg("resolve availability for calendar")
		writeError(w, http.StatusInternalServerError, "failed to resolve availability")
		metrics.IncAPIRequest("calendar_day", "500")
		return
	}

	filter := store.BookingFilter{
		From: date,
		To:   date.AddDate(0, 0, 1),
	}
	if staffID != nil {
		filter.StaffID = *staffID
	}
	bookings, err := s.bookings.List(r.Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("list bookings for calendar")
		writeError(w, http.StatusInternalServerError, "failed to load bookings")
		metrics.IncAPIRequest("calendar_day", "500")
		return
	}

	// Catalog names resolve per request; a miss falls back to free text.
	names := make(map[int64]models.Service)
	serviceName := func(id int64) (string, string) {
		if svc, ok := names[id]; ok {
			return svc.Name, svc.Category
		}
		svc, err := s.db.GetService(r.Context(), id)
		if err != nil {
			return "", ""
		}
		names[id] = *svc
		return svc.Name, svc.Category
	}

	events := calendar.ProjectBookings(bookings, serviceName)
	view := calendar.DayView{
		Availability: day,
		Events:       calendar.Layout(events),
	}

	writeJSON(w, http.StatusOK, view)
	metrics.IncAPIRequest("calendar_day", "200")
}
