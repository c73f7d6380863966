package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"studiodesk/internal/booking"
	"studiodesk/internal/metrics"
	"studiodesk/internal/models"
	"studiodesk/internal/store"
)

// CreateBookingRequest is the request body for POST /api/v1/bookings.
type CreateBookingRequest struct {
	ClientID        int64  `json:"client_id"`
	StaffID         *int64 `json:"staff_id,omitempty"`
	ServiceID       int64  `json:"service_id"`
	StartsAt        string `json:"starts_at"` // RFC 3339
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	TotalCents      int64  `json:"total_cents,omitempty"`
	Location        string `json:"location,omitempty"`
	ClientNotes     string `json:"client_notes,omitempty"`
	StaffNotes      string `json:"staff_notes,omitempty"`
	AsConfirmed     bool   `json:"as_confirmed,omitempty"`
}

// UpdateBookingRequest is the request body for PUT /api/v1/bookings/{id}.
// A non-empty status transitions the booking alongside the edit.
type UpdateBookingRequest struct {
	ClientID        int64  `json:"client_id,omitempty"`
	StaffID         *int64 `json:"staff_id,omitempty"`
	ServiceID       int64  `json:"service_id,omitempty"`
	StartsAt        string `json:"starts_at"`
	DurationMinutes int    `json:"duration_minutes"`
	TotalCents      int64  `json:"total_cents"`
	Location        string `json:"location,omitempty"`
	ClientNotes     string `json:"client_notes,omitempty"`
	StaffNotes      string `json:"staff_notes,omitempty"`
	Status          string `json:"status,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Version         int64  `json:"version,omitempty"`
}

// ChangeStatusRequest is the request body for POST /api/v1/bookings/{id}/status.
type ChangeStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// handleBookings dispatches the collection endpoints.
// POST /api/v1/bookings, GET /api/v1/bookings
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createBooking(w, r)
	case http.MethodGet:
		s.listBookings(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		metrics.IncAPIRequest("bookings", "405")
	}
}

func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		metrics.IncAPIRequest("bookings", "400")
		return
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid starts_at; expected RFC 3339")
		metrics.IncAPIRequest("bookings", "400")
		return
	}

	b, err := s.bookings.Create(r.Context(), booking.CreateRequest{
		ClientID:        req.ClientID,
		StaffID:         req.StaffID,
		ServiceID:       req.ServiceID,
		StartsAt:        startsAt,
		DurationMinutes: req.DurationMinutes,
		TotalCents:      req.TotalCents,
		Location:        req.Location,
		ClientNotes:     req.ClientNotes,
		StaffNotes:      req.StaffNotes,
		AsConfirmed:     req.AsConfirmed,
	})
	if err != nil {
		s.writeBookingError(w, "bookings", err)
		return
	}

	writeJSON(w, http.StatusCreated, b)
	metrics.IncAPIRequest("bookings", "201")
}

func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.BookingFilter{
		Status: models.BookingStatus(q.Get("status")),
	}
	if raw := q.Get("client_id"); raw != "" {
		filter.ClientID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw := q.Get("staff_id"); raw != "" {
		filter.StaffID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date; expected YYYY-MM-DD")
			metrics.IncAPIRequest("bookings", "400")
			return
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date; expected YYYY-MM-DD")
			metrics.IncAPIRequest("bookings", "400")
			return
		}
		filter.To = t
	}
	if raw := q.Get("limit"); raw != "" {
		filter.Limit, _ = strconv.Atoi(raw)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status filter")
		metrics.IncAPIRequest("bookings", "400")
		return
	}

	bookings, err := s.bookings.List(r.Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("list bookings")
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		metrics.IncAPIRequest("bookings", "500")
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})
	metrics.IncAPIRequest("bookings", "200")
}

// handleBookingByID dispatches the per-booking endpoints.
// GET/PUT/DELETE /api/v1/bookings/{id}, POST /api/v1/bookings/{id}/status
func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		metrics.IncAPIRequest("booking", "400")
		return
	}

	if len(parts) == 2 && parts[1] == "status" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
			metrics.IncAPIRequest("booking_status", "405")
			return
		}
		s.changeBookingStatus(w, r, id)
		return
	}
	if len(parts) != 1 {
		writeError(w, http.StatusBadRequest, "invalid path")
		metrics.IncAPIRequest("booking", "400")
		return
	}

	switch r.Method {
	case http.MethodGet:
		b, err := s.bookings.Get(r.Context(), id)
		if err != nil {
			s.writeBookingError(w, "booking", err)
			return
		}
		writeJSON(w, http.StatusOK, b)
		metrics.IncAPIRequest("booking", "200")

	case http.MethodPut:
		s.updateBooking(w, r, id)

	case http.MethodDelete:
		if err := s.bookings.Delete(r.Context(), id); err != nil {
			s.writeBookingError(w, "booking", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
		metrics.IncAPIRequest("booking", "200")

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		metrics.IncAPIRequest("booking", "405")
	}
}

func (s *HTTPServer) updateBooking(w http.ResponseWriter, r *http.Request, id int64) {
	var req UpdateBookingRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		metrics.IncAPIRequest("booking", "400")
		return
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid starts_at; expected RFC 3339")
		metrics.IncAPIRequest("booking", "400")
		return
	}

	b, err := s.bookings.Update(r.Context(), id, booking.UpdateRequest{
		ClientID:        req.ClientID,
		StaffID:         req.StaffID,
		ServiceID:       req.ServiceID,
		StartsAt:        startsAt,
		DurationMinutes: req.DurationMinutes,
		TotalCents:      req.TotalCents,
		Location:        req.Location,
		ClientNotes:     req.ClientNotes,
		StaffNotes:      req.StaffNotes,
		Status:          models.BookingStatus(req.Status),
		Reason:          req.Reason,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		s.writeBookingError(w, "booking", err)
		return
	}

	writeJSON(w, http.StatusOK, b)
	metrics.IncAPIRequest("booking", "200")
}

func (s *HTTPServer) changeBookingStatus(w http.ResponseWriter, r *http.Request, id int64) {
	var req ChangeStatusRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		metrics.IncAPIRequest("booking_status", "400")
		return
	}

	var meta *booking.TransitionMeta
	if req.Reason != "" {
		meta = &booking.TransitionMeta{CancellationReason: req.Reason}
	}

	b, err := s.bookings.ChangeStatus(r.Context(), id, models.BookingStatus(req.Status), meta)
	if err != nil {
		s.writeBookingError(w, "booking_status", err)
		return
	}

	writeJSON(w, http.StatusOK, b)
	metrics.IncAPIRequest("booking_status", "200")
}

// writeBookingError maps domain errors onto HTTP statuses.
func (s *HTTPServer) writeBookingError(w http.ResponseWriter, endpoint string, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation), errors.Is(err, booking.ErrUnknownStatus):
		writeError(w, http.StatusBadRequest, err.Error())
		metrics.IncAPIRequest(endpoint, "400")
	case errors.Is(err, booking.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		metrics.IncAPIRequest(endpoint, "404")
	case errors.Is(err, booking.ErrVersionConflict), errors.Is(err, booking.ErrIllegalTransition):
		writeError(w, http.StatusConflict, err.Error())
		metrics.IncAPIRequest(endpoint, "409")
	default:
		s.logger.Error().Err(err).Str("endpoint", endpoint).Msg("booking api error")
		writeError(w, http.StatusInternalServerError, "internal error")
		metrics.IncAPIRequest(endpoint, "500")
	}
}
