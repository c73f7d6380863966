package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studiodesk/internal/models"
)

// staffScope builds the WHERE fragment for an optional staff scope. A nil
// staffID addresses the studio-wide rows.
func staffScope(staffID *int64) (string, []interface{}) {
	if staffID == nil {
		return "staff_id IS NULL", nil
	}
	return "staff_id = ?", []interface{}{*staffID}
}

// ListBusinessHours returns the weekly rules for the scope, ordered by day.
func (db *DB) ListBusinessHours(ctx context.Context, staffID *int64) ([]models.BusinessHourRule, error) {
	cond, args := staffScope(staffID)
	rows, err := db.QueryContext(ctx, `
		SELECT id, staff_id, day_of_week, is_open, opens_at, closes_at, created_at, updated_at
		FROM business_hours WHERE `+cond+` ORDER BY day_of_week`, args...)
	if err != nil {
		return nil, fmt.Errorf("list business hours: %w", err)
	}
	defer rows.Close()

	var rules []models.BusinessHourRule
	for rows.Next() {
		var r models.BusinessHourRule
		var sid sql.NullInt64
		if err := rows.Scan(&r.ID, &sid, &r.DayOfWeek, &r.IsOpen, &r.OpensAt, &r.ClosesAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan business hour rule: %w", err)
		}
		if sid.Valid {
			r.StaffID = &sid.Int64
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// UpsertBusinessHour writes the rule for its day of week, replacing any
// existing rule in the same scope.
func (db *DB) UpsertBusinessHour(ctx context.Context, r *models.BusinessHourRule) error {
	if r.DayOfWeek < 1 || r.DayOfWeek > 7 {
		return fmt.Errorf("day_of_week out of range: %d", r.DayOfWeek)
	}

	cond, args := staffScope(r.StaffID)
	delArgs := append([]interface{}{}, args...)
	delArgs = append(delArgs, r.DayOfWeek)
	if _, err := db.ExecContext(ctx,
		"DELETE FROM business_hours WHERE "+cond+" AND day_of_week = ?", delArgs...); err != nil {
		return fmt.Errorf("replace business hour rule: %w", err)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO business_hours (staff_id, day_of_week, is_open, opens_at, closes_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.StaffID, r.DayOfWeek, r.IsOpen, r.OpensAt, r.ClosesAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert business hour rule: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

// ListClosures returns closures overlapping [from, to] for the scope.
func (db *DB) ListClosures(ctx context.Context, staffID *int64, from, to time.Time) ([]models.ClosureRange, error) {
	cond, args := staffScope(staffID)
	args = append(args, to, from)
	rows, err := db.QueryContext(ctx, `
		SELECT id, staff_id, closure_type, starts_on, ends_on, label, created_at
		FROM closures WHERE `+cond+` AND starts_on <= ? AND ends_on >= ?
		ORDER BY starts_on`, args...)
	if err != nil {
		return nil, fmt.Errorf("list closures: %w", err)
	}
	defer rows.Close()

	var closures []models.ClosureRange
	for rows.Next() {
		var c models.ClosureRange
		var sid sql.NullInt64
		var ctype string
		var label sql.NullString
		if err := rows.Scan(&c.ID, &sid, &ctype, &c.StartDate, &c.EndDate, &label, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan closure: %w", err)
		}
		if sid.Valid {
			c.StaffID = &sid.Int64
		}
		c.Type = models.ClosureType(ctype)
		c.Label = label.String
		closures = append(closures, c)
	}
	return closures, rows.Err()
}

// CreateClosure inserts a closure and returns the generated id.
func (db *DB) CreateClosure(ctx context.Context, c *models.ClosureRange) (int64, error) {
	if c.EndDate.Before(c.StartDate) {
		return 0, fmt.Errorf("closure ends before it starts")
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO closures (staff_id, closure_type, starts_on, ends_on, label)
		VALUES (?, ?, ?, ?, ?)`,
		c.StaffID, string(c.Type), c.StartDate, c.EndDate, c.Label,
	)
	if err != nil {
		return 0, fmt.Errorf("insert closure: %w", err)
	}
	return res.LastInsertId()
}

// DeleteClosure removes a closure.
func (db *DB) DeleteClosure(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, "DELETE FROM closures WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete closure %d: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: closure %d", ErrNotFound, id)
	}
	return nil
}

// GetLunchBreak returns the lunch settings for the scope. A missing row means
// lunch is disabled.
func (db *DB) GetLunchBreak(ctx context.Context, staffID *int64) (models.LunchBreak, error) {
	cond, args := staffScope(staffID)
	var lb models.LunchBreak
	err := db.QueryRowContext(ctx,
		"SELECT enabled, start_time, end_time FROM lunch_settings WHERE "+cond, args...).
		Scan(&lb.Enabled, &lb.Start, &lb.End)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.LunchBreak{}, nil
		}
		return models.LunchBreak{}, fmt.Errorf("get lunch break: %w", err)
	}
	return lb, nil
}

// SetLunchBreak replaces the lunch settings for the scope.
func (db *DB) SetLunchBreak(ctx context.Context, staffID *int64, lb models.LunchBreak) error {
	cond, args := staffScope(staffID)
	if _, err := db.ExecContext(ctx, "DELETE FROM lunch_settings WHERE "+cond, args...); err != nil {
		return fmt.Errorf("replace lunch settings: %w", err)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO lunch_settings (staff_id, enabled, start_time, end_time, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		staffID, lb.Enabled, lb.Start, lb.End, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert lunch settings: %w", err)
	}
	return nil
}
