package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"studiodesk/internal/metrics"
	"studiodesk/internal/models"
)

// BusinessHourRequest is the request body for PUT /api/v1/schedule/hours.
type BusinessHourRequest struct {
	StaffID   *int64 `json:"staff_id,omitempty"`
	DayOfWeek int    `json:"day_of_week"` // Monday = 1 ... Sunday = 7
	IsOpen    bool   `json:"is_open"`
	OpensAt   string `json:"opens_at,omitempty"`  // "HH:MM"
	ClosesAt  string `json:"closes_at,omitempty"` // "HH:MM"
}

// ClosureRequest is the request body for POST /api/v1/schedule/closures.
type ClosureRequest struct {
	StaffID   *int64 `json:"staff_id,omitempty"`
	Type      string `json:"type"` // "day_off" or "vacation"
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Label     string `json:"label,omitempty"`
}

// LunchRequest is the request body for PUT /api/v1/schedule/lunch.
type LunchRequest struct {
	StaffID *int64 `json:"staff_id,omitempty"`
	Enabled bool   `json:"enabled"`
	Start   string `json:"start,omitempty"` // "HH:MM"
	End     string `json:"end,omitempty"`   // "HH:MM"
}

// handleBusinessHours replaces one weekly rule.
// PUT /api/v1/schedule/hours
func (s *HTTPServer) handleBusinessHours(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use PUT")
		metrics.IncAPIRequest("schedule_hours", "405")
		return
	}

	var req BusinessHourRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		metrics.IncAPIRequest("schedule_hours", "400")
		return
	}
	if req.DayOfWeek < 1 || req.DayOfWeek > 7 {
		writeError(w, http.StatusBadRequest, "day_of_week must be 1 (Monday) to 7 (Sunday)")
		metrics.IncAPIRequest("schedule_hours", "400")
		return
	}
	if req.IsOpen && !validClock(req.OpensAt) {
		writeError(w, http.StatusBadRequest, "opens_at must be HH:MM")
		metrics.IncAPIRequest("schedule_hours", "400")
		return
	}
	if req.IsOpen && !validClock(req.ClosesAt) {
		writeError(w, http.StatusBadRequest, "closes_at must be HH:MM")
		metrics.IncAPIRequest("schedule_hours", "400")
		return
	}

	rule := &models.BusinessHourRule{
		StaffID:   req.StaffID,
		DayOfWeek: req.DayOfWeek,
		IsOpen:    req.IsOpen,
		OpensAt:   req.OpensAt,
		ClosesAt:  req.ClosesAt,
	}
	if err := s.availability.SetBusinessHour(r.Context(), rule); err != nil {
		s.logger.Error().Err(err).Msg("set business hours")
		writeError(w, http.StatusInternalServerError, "failed to save business hours")
		metrics.IncAPIRequest("schedule_hours", "500")
		return
	}

	writeJSON(w, http.StatusOK, rule)
	metrics.IncAPIRequest("schedule_hours", "200")
}

// handleClosures creates a closure.
// POST /api/v1/schedule/closures
func (s *HTTPServer) handleClosures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		metrics.IncAPIRequest("schedule_closures", "405")
		return
	}

	var req ClosureRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		metrics.IncAPIRequest("schedule_closures", "400")
		return
	}

	ctype := models.ClosureType(req.Type)
	if ctype != models.ClosureDayOff && ctype != models.ClosureVacation {
		writeError(w, http.StatusBadRequest, "type must be day_off or vacation")
		metrics.IncAPIRequest("schedule_closures", "400")
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date format; expected YYYY-MM-DD")
		metrics.IncAPIRequest("schedule_closures", "400")
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date format; expected YYYY-MM-DD")
		metrics.IncAPIRequest("schedule_closures", "400")
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end_date must not be before start_date")
		metrics.IncAPIRequest("schedule_closures", "400")
		return
	}

	closure := &models.ClosureRange{
		StaffID:   req.StaffID,
		Type:      ctype,
		StartDate: start,
		EndDate:   end,
		Label:     req.Label,
	}
	if _, err := s.availability.AddClosure(r.Context(), closure); err != nil {
		s.logger.Error().Err(err).Msg("create closure")
		writeError(w, http.StatusInternalServerError, "failed to create closure")
		metrics.IncAPIRequest("schedule_closures", "500")
		return
	}

	writeJSON(w, http.StatusCreated, closure)
	metrics.IncAPIRequest("schedule_closures", "201")
}

// handleClosureByID deletes a closure.
// DELETE /api/v1/schedule/closures/{id}
func (s *HTTPServer) handleClosureByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use DELETE")
		metrics.IncAPIRequest("schedule_closure", "405")
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/schedule/closures/"), "/")
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid closure id")
		metrics.IncAPIRequest("schedule_closure", "400")
		return
	}

	staffID, err := parseOptionalStaffID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		metrics.IncAPIRequest("schedule_closure", "400")
		return
	}

	if err := s.availability.RemoveClosure(r.Context(), id, staffID); err != nil {
		s.logger.Error().Err(err).Int64("closure_id", id).Msg("delete closure")
		writeError(w, http.StatusNotFound, "closure not found")
		metrics.IncAPIRequest("schedule_closure", "404")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	metrics.IncAPIRequest("schedule_closure", "200")
}

// handleLunch replaces the lunch window.
// PUT /api/v1/schedule/lunch
func (s *HTTPServer) handleLunch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use PUT")
		metrics.IncAPIRequest("schedule_lunch", "405")
		return
	}

	var req LunchRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		metrics.IncAPIRequest("schedule_lunch", "400")
		return
	}
	if req.Enabled && (!validClock(req.Start) || !validClock(req.End)) {
		writeError(w, http.StatusBadRequest, "start and end must be HH:MM when enabled")
		metrics.IncAPIRequest("schedule_lunch", "400")
		return
	}

	lb := models.LunchBreak{Enabled: req.Enabled, Start: req.Start, End: req.End}
	if err := s.availability.SetLunch(r.Context(), req.StaffID, lb); err != nil {
		s.logger.Error().Err(err).Msg("set lunch")
		writeError(w, http.StatusInternalServerError, "failed to save lunch settings")
		metrics.IncAPIRequest("schedule_lunch", "500")
		return
	}

	writeJSON(w, http.StatusOK, lb)
	metrics.IncAPIRequest("schedule_lunch", "200")
}

func validClock(s string) bool {
	if _, err := time.Parse("15:04", s); err != nil {
		return false
	}
	return true
}
