// Package booking implements the booking lifecycle: the status state machine,
// the service that persists transitions, and the side-effect orchestrator
// that reacts to committed transitions.
package booking

import (
	"fmt"
	"time"

	"studiodesk/internal/models"
)

// Machine validates and applies status transitions on a booking record.
// Persistence is the service's job; side effects are the orchestrator's.
type Machine struct {
	transitions map[models.BookingStatus][]models.BookingStatus
	now         func() time.Time
}

// NewMachine creates a machine with the studio transition table: status moves
// forward along pending -> confirmed -> in_progress -> completed (forward
// jumps allowed), cancelled and no_show are reachable from any non-terminal
// state, and terminal states have no exits.
func NewMachine() *Machine {
	return &Machine{
		transitions: map[models.BookingStatus][]models.BookingStatus{
			models.StatusPending: {
				models.StatusConfirmed, models.StatusInProgress, models.StatusCompleted,
				models.StatusCancelled, models.StatusNoShow,
			},
			models.StatusConfirmed: {
				models.StatusInProgress, models.StatusCompleted,
				models.StatusCancelled, models.StatusNoShow,
			},
			models.StatusInProgress: {
				models.StatusCompleted,
				models.StatusCancelled, models.StatusNoShow,
			},
			models.StatusCompleted: {},
			models.StatusCancelled: {},
			models.StatusNoShow:    {},
		},
		now: time.Now,
	}
}

// TransitionMeta carries optional data accompanying a transition.
type TransitionMeta struct {
	CancellationReason string
}

// CanTransition checks if the transition is allowed by the table.
func (m *Machine) CanTransition(from, to models.BookingStatus) bool {
	allowed, ok := m.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition applies the status change to the booking in memory, stamping the
// lifecycle timestamp for the entered state. The booking is not persisted
// here. Returns ErrIllegalTransition without mutating anything when the table
// forbids the move.
func (m *Machine) Transition(b *models.Booking, to models.BookingStatus, meta *TransitionMeta) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if !m.CanTransition(b.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, b.Status, to)
	}

	b.Status = to
	m.stamp(b, meta)
	return nil
}

// stamp sets the lifecycle timestamp for the state just entered. Earlier
// timestamps are never cleared.
func (m *Machine) stamp(b *models.Booking, meta *TransitionMeta) {
	now := m.now()
	switch b.Status {
	case models.StatusConfirmed:
		b.ConfirmedAt = &now
	case models.StatusCompleted:
		b.CompletedAt = &now
	case models.StatusCancelled:
		b.CancelledAt = &now
		if meta != nil && meta.CancellationReason != "" {
			b.CancellationReason = meta.CancellationReason
		}
	}
}

// StampInitial applies the creation-time timestamp rules: an admin-created
// booking starts life confirmed and gets confirmedAt immediately.
func (m *Machine) StampInitial(b *models.Booking) {
	m.stamp(b, nil)
}
