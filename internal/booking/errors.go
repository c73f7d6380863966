package booking

import (
	"errors"

	"studiodesk/internal/store"
)

var (
	// ErrValidation marks malformed input rejected before any persistence.
	ErrValidation = errors.New("invalid booking input")

	// ErrIllegalTransition marks a status change the transition table forbids.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrUnknownStatus marks a status value outside the known set.
	ErrUnknownStatus = errors.New("unknown booking status")

	// Persistence sentinels, re-exported so callers can match without
	// importing the store.
	ErrNotFound        = store.ErrNotFound
	ErrVersionConflict = store.ErrVersionConflict
)
