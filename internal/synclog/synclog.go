// Package synclog is the append-only audit trail of outbound side effects:
// payment-order creation, notification dispatch, CRM mirroring. The engine
// only ever writes it; operators read it out of band.
package synclog

import (
	"context"
	"time"
)

// Entry statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Directions. The engine only produces outbound traffic today.
const (
	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"
)

// Well-known providers.
const (
	ProviderPayments = "payments"
	ProviderEmail    = "email"
	ProviderTelegram = "telegram"
	ProviderSheets   = "sheets"
)

// Entry is one audit record for an external call.
type Entry struct {
	ID           int64     `json:"id"`
	Provider     string    `json:"provider"`
	Direction    string    `json:"direction"`
	Status       string    `json:"status"`
	EntityType   string    `json:"entity_type"`
	LocalID      int64     `json:"local_id"`
	Message      string    `json:"message,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Sink accepts entries. Implementations must be append-only; the engine never
// reads entries back.
type Sink interface {
	Append(ctx context.Context, e Entry) error
}

// Success builds an ok entry for an outbound call.
func Success(provider, entityType string, localID int64, message string) Entry {
	return Entry{
		Provider:   provider,
		Direction:  DirectionOutbound,
		Status:     StatusOK,
		EntityType: entityType,
		LocalID:    localID,
		Message:    message,
	}
}

// Failure builds an error entry for an outbound call.
func Failure(provider, entityType string, localID int64, message string, err error) Entry {
	e := Entry{
		Provider:   provider,
		Direction:  DirectionOutbound,
		Status:     StatusError,
		EntityType: entityType,
		LocalID:    localID,
		Message:    message,
	}
	if err != nil {
		e.ErrorMessage = err.Error()
	}
	return e
}
