package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"studiodesk/internal/models"
)

var (
	// ErrNotFound marks a lookup with no row behind it.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict marks a write rejected because the row's version no
	// longer matches what the caller read.
	ErrVersionConflict = errors.New("record was modified concurrently")
)

const bookingColumns = `id, client_id, staff_id, service_id, status, starts_at,
	duration_minutes, total_cents, location, client_notes, staff_notes,
	payment_order_ref, confirmed_at, completed_at, cancelled_at,
	cancellation_reason, created_at, updated_at, version`

// CreateBooking inserts a booking and returns the generated id.
func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO bookings (
			client_id, staff_id, service_id, status, starts_at,
			duration_minutes, total_cents, location, client_notes, staff_notes,
			payment_order_ref, confirmed_at, completed_at, cancelled_at,
			cancellation_reason, created_at, updated_at, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ClientID, b.StaffID, b.ServiceID, string(b.Status), b.StartsAt,
		b.DurationMinutes, b.TotalCents, b.Location, b.ClientNotes, b.StaffNotes,
		b.PaymentOrderRef, b.ConfirmedAt, b.CompletedAt, b.CancelledAt,
		b.CancellationReason, b.CreatedAt, b.UpdatedAt, b.Version,
	)
	if err != nil {
		return 0, fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("booking insert id: %w", err)
	}
	return id, nil
}

// GetBooking loads one booking by id.
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: booking %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return b, nil
}

// UpdateBookingWithVersion writes every mutable column of the booking, but
// only if the row still carries expectedVersion. A zero-row update means a
// concurrent writer got there first.
func (db *DB) UpdateBookingWithVersion(ctx context.Context, b *models.Booking, expectedVersion int64) error {
	res, err := db.ExecContext(ctx, `
		UPDATE bookings SET
			client_id = ?, staff_id = ?, service_id = ?, status = ?,
			starts_at = ?, duration_minutes = ?, total_cents = ?, location = ?,
			client_notes = ?, staff_notes = ?, payment_order_ref = ?,
			confirmed_at = ?, completed_at = ?, cancelled_at = ?,
			cancellation_reason = ?, updated_at = ?, version = ?
		WHERE id = ? AND version = ?`,
		b.ClientID, b.StaffID, b.ServiceID, string(b.Status),
		b.StartsAt, b.DurationMinutes, b.TotalCents, b.Location,
		b.ClientNotes, b.StaffNotes, b.PaymentOrderRef,
		b.ConfirmedAt, b.CompletedAt, b.CancelledAt,
		b.CancellationReason, b.UpdatedAt, b.Version,
		b.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update booking %d: %w", b.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update booking %d: %w", b.ID, err)
	}
	if affected == 0 {
		// Either the row is gone or its version moved on. One extra read
		// tells the caller which.
		var exists int
		if err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM bookings WHERE id = ?", b.ID).Scan(&exists); err == nil && exists == 0 {
			return fmt.Errorf("%w: booking %d", ErrNotFound, b.ID)
		}
		return fmt.Errorf("%w: booking %d", ErrVersionConflict, b.ID)
	}
	return nil
}

// SetPaymentOrderRef records the provider order reference without bumping the
// version; it is an annotation, not a user-visible edit.
func (db *DB) SetPaymentOrderRef(ctx context.Context, bookingID int64, ref string) error {
	res, err := db.ExecContext(ctx,
		"UPDATE bookings SET payment_order_ref = ? WHERE id = ?", ref, bookingID)
	if err != nil {
		return fmt.Errorf("set payment order ref: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: booking %d", ErrNotFound, bookingID)
	}
	return nil
}

// DeleteBooking removes a booking.
func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete booking %d: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: booking %d", ErrNotFound, id)
	}
	return nil
}

// BookingFilter narrows listing. Zero values mean "no constraint".
type BookingFilter struct {
	ClientID int64
	StaffID  int64
	Status   models.BookingStatus
	From     time.Time
	To       time.Time
	Limit    int
}

// ListBookings returns bookings matching the filter, ordered by start time.
func (db *DB) ListBookings(ctx context.Context, f BookingFilter) ([]models.Booking, error) {
	var conds []string
	var args []interface{}

	if f.ClientID != 0 {
		conds = append(conds, "client_id = ?")
		args = append(args, f.ClientID)
	}
	if f.StaffID != 0 {
		conds = append(conds, "staff_id = ?")
		args = append(args, f.StaffID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.From.IsZero() {
		conds = append(conds, "starts_at >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		conds = append(conds, "starts_at < ?")
		args = append(args, f.To)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY starts_at"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var staffID sql.NullInt64
	var status string
	var location, clientNotes, staffNotes, orderRef, reason sql.NullString
	var confirmedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&b.ID, &b.ClientID, &staffID, &b.ServiceID, &status, &b.StartsAt,
		&b.DurationMinutes, &b.TotalCents, &location, &clientNotes, &staffNotes,
		&orderRef, &confirmedAt, &completedAt, &cancelledAt,
		&reason, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}

	b.Status = models.BookingStatus(status)
	if staffID.Valid {
		b.StaffID = &staffID.Int64
	}
	b.Location = location.String
	b.ClientNotes = clientNotes.String
	b.StaffNotes = staffNotes.String
	b.PaymentOrderRef = orderRef.String
	b.CancellationReason = reason.String
	if confirmedAt.Valid {
		t := confirmedAt.Time
		b.ConfirmedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		b.CompletedAt = &t
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	return &b, nil
}
