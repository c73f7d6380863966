package models

import "time"

// Client is a customer of the studio.
type Client struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	EmailNotify bool      `json:"email_notify"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CanNotify reports whether the client should receive email notifications.
// A missing address or an opted-out preference silently skips dispatch.
func (c *Client) CanNotify() bool {
	return c != nil && c.Email != "" && c.EmailNotify
}

// Service is a catalog entry. Bookings snapshot its duration and price at
// creation time and keep them even if the catalog changes later.
type Service struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int64     `json:"price_cents"`
	Category        string    `json:"category,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Staff is a staff member bookings may be assigned to.
type Staff struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
