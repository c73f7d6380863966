// Package crm mirrors bookings into a Google Sheets spreadsheet that the
// studio's front desk uses as a read-only CRM view. Mirroring is best-effort
// and never blocks the booking lifecycle.
package crm

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"studiodesk/internal/models"
)

const bookingsSheet = "Bookings"

var bookingHeaders = []interface{}{
	"ID", "Client", "Staff", "Service", "Starts At", "Duration (min)",
	"Status", "Total", "Location", "Created At", "Updated At",
}

// SheetsService pushes booking rows to a spreadsheet. It keeps an in-memory
// map from booking ID to sheet row so updates rewrite in place instead of
// appending duplicates.
type SheetsService struct {
	svc           *sheets.Service
	spreadsheetID string
	logger        *zerolog.Logger

	mu       sync.Mutex
	rowCache map[int64]int
}

// NewSheetsService builds the service from a service-account credentials file.
// An empty spreadsheet ID or credentials path yields a nil service, which
// every method treats as a no-op.
func NewSheetsService(ctx context.Context, credentialsPath, spreadsheetID string, logger *zerolog.Logger) (*SheetsService, error) {
	if credentialsPath == "" || spreadsheetID == "" {
		return nil, nil
	}

	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse sheets credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsService{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger,
		rowCache:      make(map[int64]int),
	}, nil
}

// PushBooking writes or updates the row for one booking.
func (s *SheetsService) PushBooking(ctx context.Context, b *models.Booking, clientName, serviceName string) error {
	if s == nil || s.svc == nil {
		return nil
	}

	values := bookingRowValues(b, clientName, serviceName)

	if row, ok := s.getCachedRow(b.ID); ok {
		return s.updateRow(ctx, row, values)
	}
	return s.appendRow(ctx, b.ID, values)
}

// SyncAll rewrites the sheet from scratch with every non-cancelled booking.
// Used at startup and after bulk edits to heal drift.
func (s *SheetsService) SyncAll(ctx context.Context, bookings []models.Booking, clientName, serviceName func(int64) string) error {
	if s == nil || s.svc == nil {
		return nil
	}

	active := s.filterActiveBookings(bookings)
	rows := buildSyncRows(active, clientName, serviceName)

	_, err := s.svc.Spreadsheets.Values.Update(
		s.spreadsheetID,
		fmt.Sprintf("%s!A1", bookingsSheet),
		&sheets.ValueRange{Values: rows},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets full sync: %w", err)
	}

	s.ClearCache()
	s.mu.Lock()
	for i := range active {
		// Row 1 is the header, data starts at row 2.
		s.rowCache[active[i].ID] = i + 2
	}
	s.mu.Unlock()

	s.logger.Info().Int("rows", len(active)).Msg("sheets full sync complete")
	return nil
}

func (s *SheetsService) appendRow(ctx context.Context, bookingID int64, values []interface{}) error {
	resp, err := s.svc.Spreadsheets.Values.Append(
		s.spreadsheetID,
		fmt.Sprintf("%s!A:K", bookingsSheet),
		&sheets.ValueRange{Values: [][]interface{}{values}},
	).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets append: %w", err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		if row, ok := parseRowFromRange(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(bookingID, row)
		}
	}
	return nil
}

func (s *SheetsService) updateRow(ctx context.Context, row int, values []interface{}) error {
	_, err := s.svc.Spreadsheets.Values.Update(
		s.spreadsheetID,
		fmt.Sprintf("%s!A%d", bookingsSheet, row),
		&sheets.ValueRange{Values: [][]interface{}{values}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets update row %d: %w", row, err)
	}
	return nil
}

// filterActiveBookings drops cancelled bookings from the mirror.
func (s *SheetsService) filterActiveBookings(bookings []models.Booking) []models.Booking {
	active := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Status == models.StatusCancelled {
			continue
		}
		active = append(active, b)
	}
	return active
}

// buildSyncRows assembles the full sheet contents: the header row followed by
// one row per booking, in input order.
func buildSyncRows(bookings []models.Booking, clientName, serviceName func(int64) string) [][]interface{} {
	rows := make([][]interface{}, 0, len(bookings)+1)
	rows = append(rows, bookingHeaders)
	for i := range bookings {
		b := &bookings[i]
		rows = append(rows, bookingRowValues(b, clientName(b.ClientID), serviceName(b.ServiceID)))
	}
	return rows
}

func bookingRowValues(b *models.Booking, clientName, serviceName string) []interface{} {
	staff := ""
	if b.StaffID != nil {
		staff = fmt.Sprintf("%d", *b.StaffID)
	}
	return []interface{}{
		b.ID,
		clientName,
		staff,
		serviceName,
		b.StartsAt.Format("2006-01-02 15:04"),
		b.DurationMinutes,
		string(b.Status),
		fmt.Sprintf("%.2f", float64(b.TotalCents)/100),
		b.Location,
		b.CreatedAt.Format("2006-01-02 15:04:05"),
		b.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// parseRowFromRange extracts the row number from a range like "Bookings!A42:K42".
func parseRowFromRange(r string) (int, bool) {
	var row int
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] < '0' || r[i] > '9' {
			if _, err := fmt.Sscanf(r[i+1:], "%d", &row); err == nil && row > 0 {
				return row, true
			}
			return 0, false
		}
	}
	return 0, false
}

func (s *SheetsService) getCachedRow(bookingID int64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rowCache[bookingID]
	return row, ok
}

func (s *SheetsService) setCachedRow(bookingID int64, row int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache[bookingID] = row
}

func (s *SheetsService) deleteCachedRow(bookingID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rowCache, bookingID)
}

// ForgetBooking drops the cached row position for a deleted booking. Its row
// stays in the sheet until the next full sync rewrites it.
func (s *SheetsService) ForgetBooking(bookingID int64) {
	if s == nil {
		return
	}
	s.deleteCachedRow(bookingID)
}

// ClearCache forgets all row positions. The next push per booking appends.
func (s *SheetsService) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache = make(map[int64]int)
}
