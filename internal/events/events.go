// Package events provides the in-process pub/sub bus that decouples booking
// transitions from their side effects.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event types published by the booking service.
const (
	TypeBookingCreated      = "booking.created"
	TypeBookingTransitioned = "booking.transitioned"
	TypeBookingUpdated      = "booking.updated"
	TypeBookingDeleted      = "booking.deleted"
	TypeScheduleChanged     = "schedule.changed"
)

// Event is a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Handler reacts to an event. A handler error never propagates to the
// publisher; it is logged and the remaining handlers still run.
type Handler func(event Event) error

// Bus provides in-process pub/sub for events.
type Bus struct {
	subscribers map[string][]Handler
	logger      *zerolog.Logger
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus(logger *zerolog.Logger) *Bus {
	return &Bus{subscribers: make(map[string][]Handler), logger: logger}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type. Handlers run synchronously
// in subscription order; every handler sees the event even when an earlier
// one fails.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			b.logger.Error().Err(err).Str("type", event.Type).Msg("event handler failed")
		}
	}
}

// PublishJSON marshals the payload and publishes it under the event type.
func (b *Bus) PublishJSON(eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.Publish(Event{Type: eventType, Payload: data})
	return nil
}
