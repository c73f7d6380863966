package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"studiodesk/internal/models"
)

// GetClient loads one client by id.
func (db *DB) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	var c models.Client
	var email, phone sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, email_notify, created_at, updated_at
		FROM clients WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &email, &phone, &c.EmailNotify, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: client %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get client %d: %w", id, err)
	}
	c.Email = email.String
	c.Phone = phone.String
	return &c, nil
}

// CreateClient inserts a client and returns the generated id.
func (db *DB) CreateClient(ctx context.Context, c *models.Client) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO clients (name, email, phone, email_notify)
		VALUES (?, ?, ?, ?)`,
		c.Name, c.Email, c.Phone, c.EmailNotify,
	)
	if err != nil {
		return 0, fmt.Errorf("insert client: %w", err)
	}
	return res.LastInsertId()
}

// GetService loads one catalog service by id.
func (db *DB) GetService(ctx context.Context, id int64) (*models.Service, error) {
	var s models.Service
	var category sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT id, name, duration_minutes, price_cents, category, is_active, created_at, updated_at
		FROM services WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.PriceCents, &category, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: service %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get service %d: %w", id, err)
	}
	s.Category = category.String
	return &s, nil
}

// ListServices returns active catalog services.
func (db *DB) ListServices(ctx context.Context) ([]models.Service, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, duration_minutes, price_cents, category, is_active, created_at, updated_at
		FROM services WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var s models.Service
		var category sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.PriceCents, &category, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		s.Category = category.String
		services = append(services, s)
	}
	return services, rows.Err()
}

// CreateService inserts a catalog service and returns the generated id.
func (db *DB) CreateService(ctx context.Context, s *models.Service) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO services (name, duration_minutes, price_cents, category, is_active)
		VALUES (?, ?, ?, ?, ?)`,
		s.Name, s.DurationMinutes, s.PriceCents, s.Category, s.IsActive,
	)
	if err != nil {
		return 0, fmt.Errorf("insert service: %w", err)
	}
	return res.LastInsertId()
}

// GetStaff loads one staff member by id.
func (db *DB) GetStaff(ctx context.Context, id int64) (*models.Staff, error) {
	var s models.Staff
	err := db.QueryRowContext(ctx,
		"SELECT id, name, is_active, created_at FROM staff WHERE id = ?", id).
		Scan(&s.ID, &s.Name, &s.IsActive, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: staff %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get staff %d: %w", id, err)
	}
	return &s, nil
}
