package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"studiodesk/internal/metrics"
	"studiodesk/internal/models"
)

const (
	// MaxAvailabilityDaysRange is the maximum number of days allowed in one
	// availability request.
	MaxAvailabilityDaysRange = 90
)

// AvailabilityRequest is the request body for POST /api/v1/availability.
type AvailabilityRequest struct {
	StartDate string `json:"start_date"` // Format: YYYY-MM-DD
	EndDate   string `json:"end_date"`   // Format: YYYY-MM-DD
	StaffID   *int64 `json:"staff_id,omitempty"`
}

// AvailabilityResponse is the response for POST /api/v1/availability.
type AvailabilityResponse struct {
	Days   []models.DayAvailability `json:"days"`
	Period struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"period"`
}

// handleAvailabilityRange resolves availability for a date range.
// POST /api/v1/availability
func (s *HTTPServer) handleAvailabilityRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		metrics.IncAPIRequest("availability_range", "405")
		return
	}

	var req AvailabilityRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		metrics.IncAPIRequest("availability_range", "400")
		return
	}

	start, end, err := validateDateRange(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		metrics.IncAPIRequest("availability_range", "400")
		return
	}

	days, err := s.availability.Range(r.Context(), req.StaffID, start, end)
	if err != nil {
		s.logger.Error().Err(err).Msg("resolve availability range")
		writeError(w, http.StatusInternalServerError, "failed to resolve availability")
		metrics.IncAPIRequest("availability_range", "500")
		return
	}

	resp := AvailabilityResponse{Days: days}
	resp.Period.Start = req.StartDate
	resp.Period.End = req.EndDate
	writeJSON(w, http.StatusOK, resp)
	metrics.IncAPIRequest("availability_range", "200")
}

// handleAvailabilityDay resolves availability for a single date.
// GET /api/v1/availability/day?date=YYYY-MM-DD&staff_id=N
func (s *HTTPServer) handleAvailabilityDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		metrics.IncAPIRequest("availability_day", "405")
		return
	}

	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		metrics.IncAPIRequest("availability_day", "400")
		return
	}

	staffID, err := parseOptionalStaffID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		metrics.IncAPIRequest("availability_day", "400")
		return
	}

	day, err := s.availability.Day(r.Context(), staffID, date)
	if err != nil {
		s.logger.Error().Err(err).Msg("resolve availability day")
		writeError(w, http.StatusInternalServerError, "failed to resolve availability")
		metrics.IncAPIRequest("availability_day", "500")
		return
	}

	writeJSON(w, http.StatusOK, day)
	metrics.IncAPIRequest("availability_day", "200")
}

func validateDateRange(startStr, endStr string) (start, end time.Time, err error) {
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date and end_date are required")
	}

	start, err = time.Parse("2006-01-02", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format; expected YYYY-MM-DD")
	}

	end, err = time.Parse("2006-01-02", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format; expected YYYY-MM-DD")
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before or equal to end_date")
	}

	days := int(end.Sub(start).Hours() / 24)
	if days > MaxAvailabilityDaysRange {
		return time.Time{}, time.Time{}, fmt.Errorf("date range exceeds maximum of %d days", MaxAvailabilityDaysRange)
	}

	return start, end, nil
}

func parseOptionalStaffID(r *http.Request) (*int64, error) {
	raw := r.URL.Query().Get("staff_id")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid staff_id")
	}
	return &id, nil
}
