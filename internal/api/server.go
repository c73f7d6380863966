// Package api is the HTTP surface of the scheduling engine: availability
// queries, calendar views, booking lifecycle and schedule management.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"studiodesk/internal/availability"
	"studiodesk/internal/booking"
	"studiodesk/internal/store"
)

// HTTPServer serves the JSON API.
type HTTPServer struct {
	server       *http.Server
	db           *store.DB
	bookings     *booking.Service
	availability *availability.Service
	logger       *zerolog.Logger
}

// NewHTTPServer builds the server and its routes.
func NewHTTPServer(addr string, db *store.DB, bookings *booking.Service, avail *availability.Service, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		db:           db,
		bookings:     bookings,
		availability: avail,
		logger:       logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/availability", s.handleAvailabilityRange)
	mux.HandleFunc("/api/v1/availability/day", s.handleAvailabilityDay)
	mux.HandleFunc("/api/v1/calendar/day", s.handleCalendarDay)
	mux.HandleFunc("/api/v1/bookings", s.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", s.handleBookingByID)
	mux.HandleFunc("/api/v1/schedule/hours", s.handleBusinessHours)
	mux.HandleFunc("/api/v1/schedule/closures", s.handleClosures)
	mux.HandleFunc("/api/v1/schedule/closures/", s.handleClosureByID)
	mux.HandleFunc("/api/v1/schedule/lunch", s.handleLunch)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start begins serving. Blocks until the listener fails or Shutdown runs.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the route table for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeStrict(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
