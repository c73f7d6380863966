package availability

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"studiodesk/internal/events"
	"studiodesk/internal/models"
)

// ScheduleStore is the persistence surface for schedule data.
type ScheduleStore interface {
	ListBusinessHours(ctx context.Context, staffID *int64) ([]models.BusinessHourRule, error)
	UpsertBusinessHour(ctx context.Context, r *models.BusinessHourRule) error
	ListClosures(ctx context.Context, staffID *int64, from, to time.Time) ([]models.ClosureRange, error)
	CreateClosure(ctx context.Context, c *models.ClosureRange) (int64, error)
	DeleteClosure(ctx context.Context, id int64) error
	GetLunchBreak(ctx context.Context, staffID *int64) (models.LunchBreak, error)
	SetLunchBreak(ctx context.Context, staffID *int64, lb models.LunchBreak) error
}

// Service answers availability queries and owns schedule writes. Every write
// invalidates the cache for its scope before returning, so readers never see
// a stale "open" after a closure lands.
type Service struct {
	store  ScheduleStore
	cache  *Cache
	bus    *events.Bus
	logger *zerolog.Logger
}

// NewService wires the availability service. cache and bus may be nil.
func NewService(store ScheduleStore, cache *Cache, bus *events.Bus, logger *zerolog.Logger) *Service {
	return &Service{store: store, cache: cache, bus: bus, logger: logger}
}

// Day resolves availability for one date, consulting the cache first.
func (s *Service) Day(ctx context.Context, staffID *int64, date time.Time) (models.DayAvailability, error) {
	if cached, ok := s.cache.Get(ctx, staffID, date); ok {
		return *cached, nil
	}

	rules, closures, lunch, err := s.loadSchedule(ctx, staffID, date, date)
	if err != nil {
		return models.DayAvailability{}, err
	}

	day := Resolve(date, rules, closures, &lunch)
	s.cache.Put(ctx, staffID, day)
	return day, nil
}

// Range resolves every date in [start, end] inclusive. The whole range is
// resolved from one schedule read; per-day cache fills happen on the way out.
func (s *Service) Range(ctx context.Context, staffID *int64, start, end time.Time) ([]models.DayAvailability, error) {
	rules, closures, lunch, err := s.loadSchedule(ctx, staffID, start, end)
	if err != nil {
		return nil, err
	}

	days := ResolveRange(start, end, rules, closures, &lunch)
	for _, day := range days {
		s.cache.Put(ctx, staffID, day)
	}
	return days, nil
}

func (s *Service) loadSchedule(ctx context.Context, staffID *int64, from, to time.Time) ([]models.BusinessHourRule, []models.ClosureRange, models.LunchBreak, error) {
	rules, err := s.store.ListBusinessHours(ctx, staffID)
	if err != nil {
		return nil, nil, models.LunchBreak{}, err
	}
	closures, err := s.store.ListClosures(ctx, staffID, from, to)
	if err != nil {
		return nil, nil, models.LunchBreak{}, err
	}
	lunch, err := s.store.GetLunchBreak(ctx, staffID)
	if err != nil {
		return nil, nil, models.LunchBreak{}, err
	}
	return rules, closures, lunch, nil
}

// SetBusinessHour writes a weekly rule and invalidates the scope.
func (s *Service) SetBusinessHour(ctx context.Context, r *models.BusinessHourRule) error {
	if err := s.store.UpsertBusinessHour(ctx, r); err != nil {
		return err
	}
	s.scheduleChanged(ctx, r.StaffID, "business_hours")
	return nil
}

// AddClosure creates a closure and invalidates the scope.
func (s *Service) AddClosure(ctx context.Context, c *models.ClosureRange) (int64, error) {
	id, err := s.store.CreateClosure(ctx, c)
	if err != nil {
		return 0, err
	}
	c.ID = id
	s.scheduleChanged(ctx, c.StaffID, "closure")
	return id, nil
}

// RemoveClosure deletes a closure and invalidates the scope.
func (s *Service) RemoveClosure(ctx context.Context, id int64, staffID *int64) error {
	if err := s.store.DeleteClosure(ctx, id); err != nil {
		return err
	}
	s.scheduleChanged(ctx, staffID, "closure")
	return nil
}

// SetLunch writes the lunch window and invalidates the scope.
func (s *Service) SetLunch(ctx context.Context, staffID *int64, lb models.LunchBreak) error {
	if err := s.store.SetLunchBreak(ctx, staffID, lb); err != nil {
		return err
	}
	s.scheduleChanged(ctx, staffID, "lunch")
	return nil
}

func (s *Service) scheduleChanged(ctx context.Context, staffID *int64, what string) {
	s.cache.InvalidateScope(ctx, staffID)

	if s.bus != nil {
		payload := map[string]interface{}{"what": what}
		if staffID != nil {
			payload["staff_id"] = *staffID
		}
		if err := s.bus.PublishJSON(events.TypeScheduleChanged, payload); err != nil {
			s.logger.Error().Err(err).Str("what", what).Msg("publish schedule change")
		}
	}

	s.logger.Info().Str("what", what).Msg("schedule changed, cache invalidated")
}
