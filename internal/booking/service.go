package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"studiodesk/internal/events"
	"studiodesk/internal/metrics"
	"studiodesk/internal/models"
	"studiodesk/internal/store"
)

// Store is the persistence surface the service needs. IDs are generated by
// the store on insert; version checks guard every update of an existing row.
type Store interface {
	CreateBooking(ctx context.Context, b *models.Booking) (int64, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingWithVersion(ctx context.Context, b *models.Booking, expectedVersion int64) error
	DeleteBooking(ctx context.Context, id int64) error
	ListBookings(ctx context.Context, filter store.BookingFilter) ([]models.Booking, error)

	GetClient(ctx context.Context, id int64) (*models.Client, error)
	GetService(ctx context.Context, id int64) (*models.Service, error)
}

// CreatedPayload is the event body for a new booking.
type CreatedPayload struct {
	Booking models.Booking `json:"booking"`
}

// TransitionedPayload is the event body for a status change.
type TransitionedPayload struct {
	Booking models.Booking       `json:"booking"`
	From    models.BookingStatus `json:"from"`
}

// UpdatedPayload is the event body for a full-record edit. OldStartsAt lets
// subscribers detect reschedules without a second store read.
type UpdatedPayload struct {
	Booking     models.Booking `json:"booking"`
	OldStartsAt time.Time      `json:"old_starts_at"`
}

// DeletedPayload is the event body for a hard delete.
type DeletedPayload struct {
	BookingID int64 `json:"booking_id"`
}

// CreateRequest carries the caller-supplied fields for a new booking.
type CreateRequest struct {
	ClientID        int64
	StaffID         *int64
	ServiceID       int64
	StartsAt        time.Time
	DurationMinutes int
	TotalCents      int64
	Location        string
	ClientNotes     string
	StaffNotes      string

	// AsConfirmed makes the booking start life confirmed instead of pending.
	// Used when staff create bookings on a client's behalf.
	AsConfirmed bool
}

// Service owns booking writes. Every mutation goes through here so that the
// event bus sees exactly one event per committed change.
type Service struct {
	store   Store
	machine *Machine
	bus     *events.Bus
	logger  *zerolog.Logger
	now     func() time.Time
}

// NewService wires the booking service.
func NewService(store Store, bus *events.Bus, logger *zerolog.Logger) *Service {
	return &Service{
		store:   store,
		machine: NewMachine(),
		bus:     bus,
		logger:  logger,
		now:     time.Now,
	}
}

// Create validates and persists a new booking, snapshotting duration and
// price from the service catalog when the caller leaves them zero.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Booking, error) {
	if req.ClientID == 0 {
		return nil, fmt.Errorf("%w: client is required", ErrValidation)
	}
	if req.ServiceID == 0 {
		return nil, fmt.Errorf("%w: service is required", ErrValidation)
	}
	if req.StartsAt.IsZero() {
		return nil, fmt.Errorf("%w: start time is required", ErrValidation)
	}

	if _, err := s.store.GetClient(ctx, req.ClientID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: client %d does not exist", ErrValidation, req.ClientID)
		}
		return nil, fmt.Errorf("look up client: %w", err)
	}

	svc, err := s.store.GetService(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: service %d does not exist", ErrValidation, req.ServiceID)
		}
		return nil, fmt.Errorf("look up service: %w", err)
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = svc.DurationMinutes
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}

	total := req.TotalCents
	if total == 0 {
		total = svc.PriceCents
	}
	if total < 0 {
		return nil, fmt.Errorf("%w: total must not be negative", ErrValidation)
	}

	now := s.now()
	b := &models.Booking{
		ClientID:        req.ClientID,
		StaffID:         req.StaffID,
		ServiceID:       req.ServiceID,
		Status:          models.StatusPending,
		StartsAt:        req.StartsAt,
		DurationMinutes: duration,
		TotalCents:      total,
		Location:        req.Location,
		ClientNotes:     req.ClientNotes,
		StaffNotes:      req.StaffNotes,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
	if req.AsConfirmed {
		b.Status = models.StatusConfirmed
		s.machine.StampInitial(b)
	}

	id, err := s.store.CreateBooking(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	b.ID = id

	metrics.IncBookingCreated(string(b.Status))
	s.logger.Info().
		Int64("booking_id", b.ID).
		Int64("client_id", b.ClientID).
		Str("status", string(b.Status)).
		Time("starts_at", b.StartsAt).
		Msg("booking created")

	if err := s.bus.PublishJSON(events.TypeBookingCreated, CreatedPayload{Booking: *b}); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("publish created event")
	}

	// A booking created straight into confirmed still owes its confirmation
	// side effects.
	if b.Status == models.StatusConfirmed {
		payload := TransitionedPayload{Booking: *b, From: models.StatusPending}
		if err := s.bus.PublishJSON(events.TypeBookingTransitioned, payload); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("publish transition event")
		}
	}

	return b, nil
}

// ChangeStatus moves a booking along the lifecycle. The version observed at
// load time guards the write; a concurrent edit surfaces as ErrVersionConflict
// and the transition does not happen.
func (s *Service) ChangeStatus(ctx context.Context, id int64, to models.BookingStatus, meta *TransitionMeta) (*models.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	from := b.Status
	if err := s.machine.Transition(b, to, meta); err != nil {
		return nil, err
	}

	expected := b.Version
	b.Version++
	b.UpdatedAt = s.now()

	if err := s.store.UpdateBookingWithVersion(ctx, b, expected); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			metrics.IncVersionConflict()
		}
		return nil, err
	}

	metrics.IncBookingTransition(string(from), string(to))
	s.logger.Info().
		Int64("booking_id", b.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("booking transitioned")

	payload := TransitionedPayload{Booking: *b, From: from}
	if err := s.bus.PublishJSON(events.TypeBookingTransitioned, payload); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("publish transition event")
	}

	return b, nil
}

// UpdateRequest carries an edit of an existing booking. Zero ClientID and
// ServiceID keep the current assignment; an empty Status keeps the current
// status, a non-empty one transitions alongside the edit under the same rules
// as ChangeStatus.
type UpdateRequest struct {
	ClientID        int64
	StaffID         *int64
	ServiceID       int64
	StartsAt        time.Time
	DurationMinutes int
	TotalCents      int64
	Location        string
	ClientNotes     string
	StaffNotes      string
	Status          models.BookingStatus
	Reason          string

	// ExpectedVersion is the version the caller last saw. Zero skips the
	// caller-side check and uses the freshly loaded version instead.
	ExpectedVersion int64
}

// Update edits the mutable fields of a booking in one versioned write. A
// status carried on the request goes through the transition table and stamps
// its lifecycle timestamp exactly as a standalone status change would.
// Rescheduling is detected by comparing start timestamps at full precision
// and reported to subscribers through the updated event.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*models.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ExpectedVersion != 0 && req.ExpectedVersion != b.Version {
		return nil, fmt.Errorf("%w: booking %d changed since read", ErrVersionConflict, id)
	}
	if req.StartsAt.IsZero() {
		return nil, fmt.Errorf("%w: start time is required", ErrValidation)
	}
	if req.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}
	if req.TotalCents < 0 {
		return nil, fmt.Errorf("%w: total must not be negative", ErrValidation)
	}

	if req.ClientID != 0 && req.ClientID != b.ClientID {
		if _, err := s.store.GetClient(ctx, req.ClientID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: client %d does not exist", ErrValidation, req.ClientID)
			}
			return nil, fmt.Errorf("look up client: %w", err)
		}
		b.ClientID = req.ClientID
	}
	if req.ServiceID != 0 && req.ServiceID != b.ServiceID {
		if _, err := s.store.GetService(ctx, req.ServiceID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: service %d does not exist", ErrValidation, req.ServiceID)
			}
			return nil, fmt.Errorf("look up service: %w", err)
		}
		// Duration and price stay as edited; reassignment never re-snapshots
		// the catalog.
		b.ServiceID = req.ServiceID
	}

	from := b.Status
	transitioned := false
	if req.Status != "" && req.Status != b.Status {
		var meta *TransitionMeta
		if req.Reason != "" {
			meta = &TransitionMeta{CancellationReason: req.Reason}
		}
		if err := s.machine.Transition(b, req.Status, meta); err != nil {
			return nil, err
		}
		transitioned = true
	}

	oldStartsAt := b.StartsAt

	b.StaffID = req.StaffID
	b.StartsAt = req.StartsAt
	b.DurationMinutes = req.DurationMinutes
	b.TotalCents = req.TotalCents
	b.Location = req.Location
	b.ClientNotes = req.ClientNotes
	b.StaffNotes = req.StaffNotes

	expected := b.Version
	b.Version++
	b.UpdatedAt = s.now()

	if err := s.store.UpdateBookingWithVersion(ctx, b, expected); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			metrics.IncVersionConflict()
		}
		return nil, err
	}

	s.logger.Info().
		Int64("booking_id", b.ID).
		Bool("rescheduled", ShouldNotifyReschedule(oldStartsAt, b.StartsAt)).
		Bool("transitioned", transitioned).
		Msg("booking updated")

	payload := UpdatedPayload{Booking: *b, OldStartsAt: oldStartsAt}
	if err := s.bus.PublishJSON(events.TypeBookingUpdated, payload); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("publish updated event")
	}

	if transitioned {
		metrics.IncBookingTransition(string(from), string(b.Status))
		tp := TransitionedPayload{Booking: *b, From: from}
		if err := s.bus.PublishJSON(events.TypeBookingTransitioned, tp); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("publish transition event")
		}
	}

	return b, nil
}

// Delete removes a booking outright regardless of status. Deletion is for
// operator cleanup; the normal path for an unwanted booking is cancellation.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteBooking(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Int64("booking_id", id).Msg("booking deleted")

	if err := s.bus.PublishJSON(events.TypeBookingDeleted, DeletedPayload{BookingID: id}); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", id).Msg("publish deleted event")
	}
	return nil
}

// Get returns one booking.
func (s *Service) Get(ctx context.Context, id int64) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// List returns bookings matching the filter.
func (s *Service) List(ctx context.Context, filter store.BookingFilter) ([]models.Booking, error) {
	return s.store.ListBookings(ctx, filter)
}
