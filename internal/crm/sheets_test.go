package crm

import (
	"testing"
	"time"

	"studiodesk/internal/models"
)

func TestFilterActiveBookings(t *testing.T) {
	s := &SheetsService{}

	bookings := []models.Booking{
		{ID: 1, Status: models.StatusPending},
		{ID: 2, Status: models.StatusConfirmed},
		{ID: 3, Status: models.StatusCancelled},
		{ID: 4, Status: models.StatusCompleted},
	}

	active := s.filterActiveBookings(bookings)

	if len(active) != 3 {
		t.Errorf("Expected 3 active bookings, got %d", len(active))
	}

	for _, b := range active {
		if b.Status == models.StatusCancelled {
			t.Errorf("Cancelled booking found in active list")
		}
	}
}

func TestBookingRowValues(t *testing.T) {
	startsAt := time.Date(2024, 12, 25, 14, 30, 0, 0, time.UTC)
	createdAt := time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC)
	updatedAt := time.Date(2024, 12, 21, 11, 0, 0, 0, time.UTC)
	staffID := int64(4)

	booking := &models.Booking{
		ID:              123,
		ClientID:        456,
		StaffID:         &staffID,
		ServiceID:       789,
		Status:          models.StatusConfirmed,
		StartsAt:        startsAt,
		DurationMinutes: 60,
		TotalCents:      15050,
		Location:        "Studio A",
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}

	values := bookingRowValues(booking, "Test Client", "Test Service")

	expected := []interface{}{
		int64(123),
		"Test Client",
		"4",
		"Test Service",
		"2024-12-25 14:30",
		60,
		"confirmed",
		"150.50",
		"Studio A",
		"2024-12-20 10:00:00",
		"2024-12-21 11:00:00",
	}

	if len(values) != len(expected) {
		t.Fatalf("Expected %d values, got %d", len(expected), len(values))
	}

	for i, v := range values {
		if v != expected[i] {
			t.Errorf("At index %d: expected %v, got %v", i, expected[i], v)
		}
	}
}

func TestBookingRowValuesNoStaff(t *testing.T) {
	booking := &models.Booking{ID: 1, Status: models.StatusPending}
	values := bookingRowValues(booking, "", "")
	if values[2] != "" {
		t.Errorf("Expected empty staff cell, got %v", values[2])
	}
}

func TestCacheOperations(t *testing.T) {
	s := &SheetsService{
		rowCache: make(map[int64]int),
	}

	s.setCachedRow(100, 5)
	row, ok := s.getCachedRow(100)
	if !ok || row != 5 {
		t.Errorf("Expected row 5, got %d (ok=%v)", row, ok)
	}

	s.ForgetBooking(100)
	_, ok = s.getCachedRow(100)
	if ok {
		t.Errorf("Expected row to be deleted from cache")
	}

	s.setCachedRow(200, 10)
	s.ClearCache()
	_, ok = s.getCachedRow(200)
	if ok {
		t.Errorf("Expected cache to be cleared")
	}
}

func TestParseRowFromRange(t *testing.T) {
	tests := []struct {
		in  string
		row int
		ok  bool
	}{
		{"Bookings!A42:K42", 42, true},
		{"Bookings!A2:K2", 2, true},
		{"Bookings", 0, false},
	}
	for _, tt := range tests {
		row, ok := parseRowFromRange(tt.in)
		if row != tt.row || ok != tt.ok {
			t.Errorf("parseRowFromRange(%q) = %d, %v; want %d, %v", tt.in, row, ok, tt.row, tt.ok)
		}
	}
}

func TestNilServiceIsNoOp(t *testing.T) {
	var s *SheetsService
	if err := s.PushBooking(nil, &models.Booking{ID: 1}, "", ""); err != nil {
		t.Errorf("nil service must no-op, got %v", err)
	}
	if err := s.SyncAll(nil, []models.Booking{{ID: 1}}, nil, nil); err != nil {
		t.Errorf("nil service sync must no-op, got %v", err)
	}
	s.ForgetBooking(1)
}

func TestBuildSyncRows(t *testing.T) {
	bookings := []models.Booking{
		{ID: 1, ClientID: 10, ServiceID: 20, Status: models.StatusConfirmed},
		{ID: 2, ClientID: 11, ServiceID: 20, Status: models.StatusPending},
	}
	clientName := func(id int64) string {
		return map[int64]string{10: "Ada", 11: "Grace"}[id]
	}
	serviceName := func(int64) string { return "Portrait session" }

	rows := buildSyncRows(bookings, clientName, serviceName)

	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" || len(rows[0]) != len(bookingHeaders) {
		t.Errorf("First row must be the header, got %v", rows[0])
	}
	if rows[1][1] != "Ada" || rows[2][1] != "Grace" {
		t.Errorf("Rows out of order or names unresolved: %v / %v", rows[1], rows[2])
	}
	if rows[1][3] != "Portrait session" {
		t.Errorf("Service name unresolved: %v", rows[1])
	}
}
