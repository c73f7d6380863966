// Package payments talks to the external payment-order service. Orders are
// created best-effort when a booking is confirmed; a failure never blocks the
// booking itself.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderRequest describes the order to create.
type OrderRequest struct {
	BookingID   int64  `json:"booking_id"`
	ClientName  string `json:"client_name"`
	ServiceName string `json:"service_name"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// OrderResponse is the provider's reply.
type OrderResponse struct {
	OrderRef string `json:"order_ref"`
	Status   string `json:"status"`
}

// Client is an HTTP client for the payment-order API.
type Client struct {
	baseURL    string
	apiKey     string
	currency   string
	httpClient *http.Client
}

// NewClient constructs a client. An empty baseURL leaves the client
// unconfigured, which callers must check via IsConfigured.
func NewClient(baseURL, apiKey, currency string) *Client {
	if currency == "" {
		currency = "USD"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		currency:   currency,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// IsConfigured reports whether a payment provider is wired up.
func (c *Client) IsConfigured() bool {
	return c != nil && c.baseURL != ""
}

// CreateOrder creates a payment order and returns the provider's order
// reference. Each call carries a fresh idempotency key so provider-side
// retries cannot duplicate the order.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("payment client not configured")
	}
	if req.Currency == "" {
		req.Currency = c.currency
	}

	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/api/v1/orders", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", uuid.NewString())
	if c.apiKey != "" {
		httpReq.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("payment provider http %d", resp.StatusCode)
	}

	var out OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.OrderRef == "" {
		return "", fmt.Errorf("payment provider returned empty order ref")
	}
	return out.OrderRef, nil
}
