package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"studiodesk/internal/availability"
	"studiodesk/internal/booking"
	"studiodesk/internal/events"
	"studiodesk/internal/models"
	"studiodesk/internal/store"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type testEnv struct {
	*httptest.Server
	db *store.DB
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"), &logger)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	bus := events.NewBus(&logger)
	avail := availability.NewService(db, nil, bus, &logger)
	bookings := booking.NewService(db, bus, &logger)

	server := NewHTTPServer(":0", db, bookings, avail, &logger)
	return &testEnv{
		Server: httptest.NewServer(server.Handler()),
		db:     db,
	}
}

func (e *testEnv) post(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	return e.request(t, http.MethodPost, path, body)
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, e.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func (e *testEnv) seed(t *testing.T) (clientID, serviceID int64) {
	t.Helper()
	ctx := context.Background()
	clientID, err := e.db.CreateClient(ctx, &models.Client{Name: "Ada", Email: "ada@example.com", EmailNotify: true})
	if err != nil {
		t.Fatal(err)
	}
	serviceID, err = e.db.CreateService(ctx, &models.Service{Name: "Portrait session", DurationMinutes: 90, PriceCents: 15000, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	return clientID, serviceID
}

func TestAvailabilityRange_Validation(t *testing.T) {
	srv := setupTestServer(t)
	defer srv.Close()

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing required fields",
			body:       map[string]string{},
			wantStatus: http.StatusBadRequest,
			wantError:  "start_date and end_date are required",
		},
		{
			name: "invalid start_date format",
			body: map[string]string{
				"start_date": "15-01-2025",
				"end_date":   "2025-01-20",
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid start_date format; expected YYYY-MM-DD",
		},
		{
			name: "start after end",
			body: map[string]string{
				"start_date": "2025-01-20",
				"end_date":   "2025-01-15",
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "start_date must be before or equal to end_date",
		},
		{
			name: "range too large",
			body: map[string]string{
				"start_date": "2025-01-01",
				"end_date":   "2025-06-01",
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "date range exceeds maximum of 90 days",
		},
		{
			name: "unknown field",
			body: map[string]string{
				"start_date": "2025-01-01",
				"end_date":   "2025-01-05",
				"bogus":      "x",
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid JSON body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := srv.post(t, "/api/v1/availability", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var errResp ErrorResponse
			decodeBody(t, resp, &errResp)
			if errResp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", errResp.Error, tt.wantError)
			}
		})
	}
}

func TestAvailabilityRange_ResolvesSchedule(t *testing.T) {
	srv := setupTestServer(t)
	defer srv.Close()

	// Open Wednesdays only
	resp := srv.request(t, http.MethodPut, "/api/v1/schedule/hours", map[string]interface{}{
		"day_of_week": 3,
		"is_open":     true,
		"opens_at":    "09:00",
		"closes_at":   "18:00",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set hours: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// 2025-01-13 is Monday, 2025-01-15 is Wednesday
	resp = srv.post(t, "/api/v1/availability", map[string]string{
		"start_date": "2025-01-13",
		"end_date":   "2025-01-17",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out AvailabilityResponse
	decodeBody(t, resp, &out)

	if len(out.Days) != 5 {
		t.Fatalf("days = %d, want 5", len(out.Days))
	}
	if out.Days[0].IsOpen {
		t.Error("Monday should be closed")
	}
	if !out.Days[2].IsOpen || out.Days[2].OpensAt != "09:00" {
		t.Errorf("Wednesday should be open 09:00, got %+v", out.Days[2])
	}
}

func TestClosureBlocksAvailability(t *testing.T) {
	srv := setupTestServer(t)
	defer srv.Close()

	resp := srv.request(t, http.MethodPut, "/api/v1/schedule/hours", map[string]interface{}{
		"day_of_week": 3, "is_open": true, "opens_at": "09:00", "closes_at": "18:00",
	})
	resp.Body.Close()

	resp = srv.post(t, "/api/v1/schedule/closures", map[string]interface{}{
		"type":       "vacation",
		"start_date": "2025-01-13",
		"end_date":   "2025-01-17",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create closure: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = srv.request(t, http.MethodGet, "/api/v1/availability/day?date=2025-01-15", nil)
	var day models.DayAvailability
	decodeBody(t, resp, &day)

	if day.IsOpen {
		t.Error("closure must block the day")
	}
	if day.BlockLabel != "Vacation" {
		t.Errorf("label = %q, want Vacation", day.BlockLabel)
	}
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	srv := setupTestServer(t)
	defer srv.Close()
	clientID, serviceID := srv.seed(t)

	// Create
	resp := srv.post(t, "/api/v1/bookings", map[string]interface{}{
		"client_id":  clientID,
		"service_id": serviceID,
		"starts_at":  "2025-06-01T10:00:00Z",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d", resp.StatusCode)
	}
	var created models.Booking
	decodeBody(t, resp, &created)
	if created.ID == 0 || created.Status != models.StatusPending {
		t.Fatalf("unexpected created booking: %+v", created)
	}
	if created.DurationMinutes != 90 || created.TotalCents != 15000 {
		t.Errorf("catalog snapshot missing: %+v", created)
	}

	// Confirm
	resp = srv.post(t, fmt.Sprintf("/api/v1/bookings/%d/status", created.ID), map[string]string{
		"status": "confirmed",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm: status %d", resp.StatusCode)
	}
	var confirmed models.Booking
	decodeBody(t, resp, &confirmed)
	if confirmed.Status != models.StatusConfirmed || confirmed.ConfirmedAt == nil {
		t.Errorf("confirm failed: %+v", confirmed)
	}

	// Illegal transition is a conflict
	resp = srv.post(t, fmt.Sprintf("/api/v1/bookings/%d/status", created.ID), map[string]string{
		"status": "pending",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("illegal transition: status %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	// Stale version is a conflict
	resp = srv.request(t, http.MethodPut, fmt.Sprintf("/api/v1/bookings/%d", created.ID), map[string]interface{}{
		"starts_at":        "2025-06-02T10:00:00Z",
		"duration_minutes": 90,
		"total_cents":      15000,
		"version":          created.Version, // already bumped by the confirm
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("stale update: status %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	// Delete
	resp = srv.request(t, http.MethodDelete, fmt.Sprintf("/api/v1/bookings/%d", created.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = srv.request(t, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", created.ID), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get deleted: status %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUpdateBookingWithStatusOverHTTP(t *testing.T) {
	srv := setupTestServer(t)
	defer srv.Close()
	clientID, serviceID := srv.seed(t)

	resp := srv.post(t, "/api/v1/bookings", map[string]interface{}{
		"client_id":  clientID,
		"service_id": serviceID,
		"starts_at":  "2025-06-01T10:00:00Z",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d", resp.StatusCode)
	}
	var created models.Booking
	decodeBody(t, resp, &created)

	// One PUT moves the time and confirms in the same write
	resp = srv.request(t, http.MethodPut, fmt.Sprintf("/api/v1/bookings/%d", created.ID), map[string]interface{}{
		"starts_at":        "2025-06-02T14:00:00Z",
		"duration_minutes": 90,
		"total_cents":      15000,
		"status":           "confirmed",
		"version":          created.Version,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("combined update: status %d", resp.StatusCode)
	}
	var updated models.Booking
	decodeBody(t, resp, &updated)
	if updated.Status != models.StatusConfirmed || updated.ConfirmedAt == nil {
		t.Errorf("combined update did not transition and stamp: %+v", updated)
	}
	if updated.StartsAt.Hour() != 14 {
		t.Errorf("combined update did not move the start: %v", updated.StartsAt)
	}

	// Unknown status on the combined path is a bad request
	resp = srv.request(t, http.MethodPut, fmt.Sprintf("/api/v1/bookings/%d", created.ID), map[string]interface{}{
		"starts_at":        "2025-06-02T14:00:00Z",
		"duration_minutes": 90,
		"status":           "archived",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown status: %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCreateBooking_UnknownClient(t *testing.T) {
	srv := setupTestServer(t)
	defer srv.Close()
	_, serviceID := srv.seed(t)

	resp := srv.post(t, "/api/v1/bookings", map[string]interface{}{
		"client_id":  99999,
		"service_id": serviceID,
		"starts_at":  "2025-06-01T10:00:00Z",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCalendarDay_LayoutColumns(t *testing.T) {
	srv := setupTestServer(t)
	defer srv.Close()
	clientID, serviceID := srv.seed(t)

	day := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)
	starts := []struct {
		hour, min, dur int
	}{
		{9, 0, 60},
		{9, 30, 60},
		{10, 30, 30},
	}
	for _, s := range starts {
		resp := srv.post(t, "/api/v1/bookings", map[string]interface{}{
			"client_id":        clientID,
			"service_id":       serviceID,
			"starts_at":        time.Date(2025, 6, 4, s.hour, s.min, 0, 0, time.UTC).Format(time.RFC3339),
			"duration_minutes": s.dur,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create: status %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := srv.request(t, http.MethodGet, "/api/v1/calendar/day?date="+day.Format("2006-01-02"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var view struct {
		Events []struct {
			StartsAt time.Time `json:"starts_at"`
			Column   int       `json:"column"`
			Columns  int       `json:"columns"`
		} `json:"events"`
	}
	decodeBody(t, resp, &view)

	if len(view.Events) != 3 {
		t.Fatalf("events = %d, want 3", len(view.Events))
	}
	for _, ev := range view.Events {
		if ev.Columns != 2 {
			t.Errorf("columns = %d, want 2", ev.Columns)
		}
	}
	// The 10:30 event must reuse column 0
	last := view.Events[len(view.Events)-1]
	if last.StartsAt.Hour() != 10 || last.Column != 0 {
		t.Errorf("late event: start %v column %d, want column 0", last.StartsAt, last.Column)
	}
}
