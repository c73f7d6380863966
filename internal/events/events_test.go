package events

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	logger := zerolog.Nop()
	bus := NewBus(&logger)

	var got []string
	bus.Subscribe("booking.created", func(e Event) error {
		got = append(got, "first")
		return nil
	})
	bus.Subscribe("booking.created", func(e Event) error {
		got = append(got, "second")
		return nil
	})
	bus.Subscribe("booking.deleted", func(e Event) error {
		got = append(got, "other")
		return nil
	})

	bus.Publish(Event{Type: "booking.created"})

	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("Expected [first second], got %v", got)
	}
}

func TestPublishLogsHandlerErrorAndContinues(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	bus := NewBus(&logger)

	var secondRan bool
	bus.Subscribe("booking.transitioned", func(e Event) error {
		return errors.New("mirror unreachable")
	})
	bus.Subscribe("booking.transitioned", func(e Event) error {
		secondRan = true
		return nil
	})

	bus.Publish(Event{Type: "booking.transitioned"})

	if !secondRan {
		t.Errorf("Second handler must run after an earlier failure")
	}
	out := buf.String()
	if !strings.Contains(out, "mirror unreachable") {
		t.Errorf("Handler error not logged: %q", out)
	}
	if !strings.Contains(out, "booking.transitioned") {
		t.Errorf("Event type missing from log line: %q", out)
	}
}

func TestPublishJSONMarshalsPayload(t *testing.T) {
	logger := zerolog.Nop()
	bus := NewBus(&logger)

	var payload []byte
	bus.Subscribe("schedule.changed", func(e Event) error {
		payload = e.Payload
		if e.CreatedAt.IsZero() {
			t.Errorf("CreatedAt must be stamped on publish")
		}
		return nil
	})

	if err := bus.PublishJSON("schedule.changed", map[string]int{"staff_id": 4}); err != nil {
		t.Fatalf("PublishJSON: %v", err)
	}
	if !strings.Contains(string(payload), `"staff_id":4`) {
		t.Errorf("Unexpected payload %s", payload)
	}
}
