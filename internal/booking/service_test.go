package booking

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"studiodesk/internal/events"
	"studiodesk/internal/models"
	"studiodesk/internal/store"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateBooking(ctx context.Context, b *models.Booking) (int64, error) {
	args := m.Called(ctx, b)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockStore) UpdateBookingWithVersion(ctx context.Context, b *models.Booking, expectedVersion int64) error {
	return m.Called(ctx, b, expectedVersion).Error(0)
}

func (m *mockStore) DeleteBooking(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) ListBookings(ctx context.Context, filter store.BookingFilter) ([]models.Booking, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockStore) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *mockStore) GetService(ctx context.Context, id int64) (*models.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}

type capturedEvents struct {
	types    []string
	payloads [][]byte
}

func captureBus(bus *events.Bus, eventTypes ...string) *capturedEvents {
	c := &capturedEvents{}
	for _, et := range eventTypes {
		et := et
		bus.Subscribe(et, func(e events.Event) error {
			c.types = append(c.types, et)
			c.payloads = append(c.payloads, e.Payload)
			return nil
		})
	}
	return c
}

func newTestService(st Store) (*Service, *events.Bus) {
	logger := zerolog.Nop()
	bus := events.NewBus(&logger)
	return NewService(st, bus, &logger), bus
}

func testClient() *models.Client {
	return &models.Client{ID: 7, Name: "Ada", Email: "ada@example.com", EmailNotify: true}
}

func testCatalogService() *models.Service {
	return &models.Service{ID: 3, Name: "Portrait session", DurationMinutes: 90, PriceCents: 15000, IsActive: true}
}

func TestService_Create_Validation(t *testing.T) {
	st := new(mockStore)
	svc, _ := newTestService(st)

	_, err := svc.Create(context.Background(), CreateRequest{ServiceID: 3, StartsAt: time.Now()})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), CreateRequest{ClientID: 7, StartsAt: time.Now()})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), CreateRequest{ClientID: 7, ServiceID: 3})
	assert.ErrorIs(t, err, ErrValidation)

	st.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestService_Create_UnknownClient(t *testing.T) {
	st := new(mockStore)
	st.On("GetClient", mock.Anything, int64(99)).Return(nil, store.ErrNotFound)
	svc, _ := newTestService(st)

	_, err := svc.Create(context.Background(), CreateRequest{ClientID: 99, ServiceID: 3, StartsAt: time.Now()})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_Create_SnapshotsCatalog(t *testing.T) {
	st := new(mockStore)
	st.On("GetClient", mock.Anything, int64(7)).Return(testClient(), nil)
	st.On("GetService", mock.Anything, int64(3)).Return(testCatalogService(), nil)
	st.On("CreateBooking", mock.Anything, mock.Anything).Return(int64(42), nil)

	svc, bus := newTestService(st)
	captured := captureBus(bus, events.TypeBookingCreated)

	starts := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	b, err := svc.Create(context.Background(), CreateRequest{ClientID: 7, ServiceID: 3, StartsAt: starts})
	assert.NoError(t, err)

	assert.Equal(t, int64(42), b.ID, "id comes from the store")
	assert.Equal(t, models.StatusPending, b.Status)
	assert.Equal(t, 90, b.DurationMinutes, "duration snapshotted from catalog")
	assert.Equal(t, int64(15000), b.TotalCents, "price snapshotted from catalog")
	assert.Equal(t, int64(1), b.Version)
	assert.Nil(t, b.ConfirmedAt)

	assert.Equal(t, []string{events.TypeBookingCreated}, captured.types)
}

func TestService_Create_CallerOverridesSnapshot(t *testing.T) {
	st := new(mockStore)
	st.On("GetClient", mock.Anything, int64(7)).Return(testClient(), nil)
	st.On("GetService", mock.Anything, int64(3)).Return(testCatalogService(), nil)
	st.On("CreateBooking", mock.Anything, mock.Anything).Return(int64(1), nil)

	svc, _ := newTestService(st)

	b, err := svc.Create(context.Background(), CreateRequest{
		ClientID: 7, ServiceID: 3, StartsAt: time.Now(),
		DurationMinutes: 45, TotalCents: 9900,
	})
	assert.NoError(t, err)
	assert.Equal(t, 45, b.DurationMinutes)
	assert.Equal(t, int64(9900), b.TotalCents)
}

func TestService_Create_AsConfirmed(t *testing.T) {
	st := new(mockStore)
	st.On("GetClient", mock.Anything, int64(7)).Return(testClient(), nil)
	st.On("GetService", mock.Anything, int64(3)).Return(testCatalogService(), nil)
	st.On("CreateBooking", mock.Anything, mock.Anything).Return(int64(5), nil)

	svc, bus := newTestService(st)
	captured := captureBus(bus, events.TypeBookingCreated, events.TypeBookingTransitioned)

	b, err := svc.Create(context.Background(), CreateRequest{
		ClientID: 7, ServiceID: 3, StartsAt: time.Now(), AsConfirmed: true,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, b.Status)
	assert.NotNil(t, b.ConfirmedAt, "admin-created booking stamps confirmedAt at creation")

	assert.Equal(t, []string{events.TypeBookingCreated, events.TypeBookingTransitioned}, captured.types)
}

func TestService_ChangeStatus_HappyPath(t *testing.T) {
	st := new(mockStore)
	existing := &models.Booking{ID: 10, ClientID: 7, ServiceID: 3, Status: models.StatusPending, Version: 3}
	st.On("GetBooking", mock.Anything, int64(10)).Return(existing, nil)
	st.On("UpdateBookingWithVersion", mock.Anything, mock.Anything, int64(3)).Return(nil)

	svc, bus := newTestService(st)
	captured := captureBus(bus, events.TypeBookingTransitioned)

	b, err := svc.ChangeStatus(context.Background(), 10, models.StatusConfirmed, nil)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, b.Status)
	assert.Equal(t, int64(4), b.Version, "version bumps on transition")

	assert.Len(t, captured.payloads, 1)
	var payload TransitionedPayload
	assert.NoError(t, json.Unmarshal(captured.payloads[0], &payload))
	assert.Equal(t, models.StatusPending, payload.From)
	assert.Equal(t, models.StatusConfirmed, payload.Booking.Status)
}

func TestService_ChangeStatus_IllegalSkipsPersistence(t *testing.T) {
	st := new(mockStore)
	existing := &models.Booking{ID: 10, Status: models.StatusCompleted, Version: 1}
	st.On("GetBooking", mock.Anything, int64(10)).Return(existing, nil)

	svc, bus := newTestService(st)
	captured := captureBus(bus, events.TypeBookingTransitioned)

	_, err := svc.ChangeStatus(context.Background(), 10, models.StatusCancelled, nil)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	st.AssertNotCalled(t, "UpdateBookingWithVersion", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, captured.types, "no event on rejected transition")
}

func TestService_ChangeStatus_VersionConflict(t *testing.T) {
	st := new(mockStore)
	existing := &models.Booking{ID: 10, Status: models.StatusPending, Version: 2}
	st.On("GetBooking", mock.Anything, int64(10)).Return(existing, nil)
	st.On("UpdateBookingWithVersion", mock.Anything, mock.Anything, int64(2)).Return(store.ErrVersionConflict)

	svc, bus := newTestService(st)
	captured := captureBus(bus, events.TypeBookingTransitioned)

	_, err := svc.ChangeStatus(context.Background(), 10, models.StatusConfirmed, nil)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Empty(t, captured.types, "no event on conflicted write")
}

func TestService_Update_RescheduleCarriesOldStart(t *testing.T) {
	oldStart := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	newStart := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)

	st := new(mockStore)
	existing := &models.Booking{
		ID: 10, ClientID: 7, ServiceID: 3, Status: models.StatusConfirmed,
		StartsAt: oldStart, DurationMinutes: 60, Version: 1,
	}
	st.On("GetBooking", mock.Anything, int64(10)).Return(existing, nil)
	st.On("UpdateBookingWithVersion", mock.Anything, mock.Anything, int64(1)).Return(nil)

	svc, bus := newTestService(st)
	captured := captureBus(bus, events.TypeBookingUpdated)

	b, err := svc.Update(context.Background(), 10, UpdateRequest{
		StartsAt: newStart, DurationMinutes: 60, TotalCents: 100,
	})
	assert.NoError(t, err)
	assert.Equal(t, newStart, b.StartsAt)
	assert.Equal(t, models.StatusConfirmed, b.Status, "edit never changes status")

	assert.Len(t, captured.payloads, 1)
	var payload UpdatedPayload
	assert.NoError(t, json.Unmarshal(captured.payloads[0], &payload))
	assert.True(t, payload.OldStartsAt.Equal(oldStart))
}

func TestService_Update_WithStatusStampsAndPublishes(t *testing.T) {
	st := new(mockStore)
	existing := &models.Booking{
		ID: 10, ClientID: 7, ServiceID: 3, Status: models.StatusPending,
		StartsAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), DurationMinutes: 60, Version: 1,
	}
	st.On("GetBooking", mock.Anything, int64(10)).Return(existing, nil)
	st.On("UpdateBookingWithVersion", mock.Anything, mock.Anything, int64(1)).Return(nil)

	svc, bus := newTestService(st)
	captured := captureBus(bus, events.TypeBookingUpdated, events.TypeBookingTransitioned)

	b, err := svc.Update(context.Background(), 10, UpdateRequest{
		StartsAt: existing.StartsAt, DurationMinutes: 60, TotalCents: 100,
		Status: models.StatusConfirmed,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, b.Status)
	assert.NotNil(t, b.ConfirmedAt, "combined edit stamps the lifecycle timestamp")
	assert.Equal(t, int64(2), b.Version, "one versioned write for the whole edit")

	assert.Equal(t, []string{events.TypeBookingUpdated, events.TypeBookingTransitioned}, captured.types)
	var payload TransitionedPayload
	assert.NoError(t, json.Unmarshal(captured.payloads[1], &payload))
	assert.Equal(t, models.StatusPending, payload.From)
}

func TestService_Update_WithCancellationReason(t *testing.T) {
	st := new(mockStore)
	existing := &models.Booking{
		ID: 10, Status: models.StatusConfirmed,
		StartsAt: time.Now(), DurationMinutes: 60, Version: 1,
	}
	st.On("GetBooking", mock.Anything, int64(10)).Return(existing, nil)
	st.On("UpdateBookingWithVersion", mock.Anything, mock.Anything, int64(1)).Return(nil)

	svc, _ := newTestService(st)

	b, err := svc.Update(context.Background(), 10, UpdateRequest{
		StartsAt: existing.StartsAt, DurationMinutes: 60,
		Status: models.StatusCancelled, Reason: "client request",
	})
	assert.NoError(t, err)
	assert.NotNil(t, b.CancelledAt)
	assert.Equal(t, "client request", b.CancellationReason)
}

func TestService_Update_IllegalStatusSkipsPersistence(t *testing.T) {
	st := new(mockStore)
	existing := &models.Booking{
		ID: 10, Status: models.StatusCompleted,
		StartsAt: time.Now(), DurationMinutes: 60, Version: 1,
	}
	st.On("GetBooking", mock.Anything, int64(10)).Return(existing, nil)

	svc, bus := newTestService(st)
	captured := captureBus(bus, events.TypeBookingUpdated, events.TypeBookingTransitioned)

	_, err := svc.Update(context.Background(), 10, UpdateRequest{
		StartsAt: existing.StartsAt, DurationMinutes: 60,
		Status: models.StatusPending,
	})
	assert.ErrorIs(t, err, ErrIllegalTransition)
	st.AssertNotCalled(t, "UpdateBookingWithVersion", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, captured.types, "no event on rejected combined edit")
}

func TestService_Update_ReassignsClientAndService(t *testing.T) {
	st := new(mockStore)
	existing := &models.Booking{
		ID: 10, ClientID: 7, ServiceID: 3, Status: models.StatusPending,
		StartsAt: time.Now(), DurationMinutes: 60, Version: 1,
	}
	st.On("GetBooking", mock.Anything, int64(10)).Return(existing, nil)
	st.On("GetClient", mock.Anything, int64(8)).Return(&models.Client{ID: 8, Name: "Grace"}, nil)
	st.On("GetService", mock.Anything, int64(4)).Return(&models.Service{ID: 4, Name: "Headshots", DurationMinutes: 30}, nil)
	st.On("UpdateBookingWithVersion", mock.Anything, mock.Anything, int64(1)).Return(nil)

	svc, _ := newTestService(st)

	b, err := svc.Update(context.Background(), 10, UpdateRequest{
		ClientID: 8, ServiceID: 4,
		StartsAt: existing.StartsAt, DurationMinutes: 60, TotalCents: 100,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(8), b.ClientID)
	assert.Equal(t, int64(4), b.ServiceID)
	assert.Equal(t, 60, b.DurationMinutes, "reassignment keeps the edited duration, no re-snapshot")
}

func TestService_Update_UnknownClientRejected(t *testing.T) {
	st := new(mockStore)
	existing := &models.Booking{
		ID: 10, ClientID: 7, ServiceID: 3, Status: models.StatusPending,
		StartsAt: time.Now(), DurationMinutes: 60, Version: 1,
	}
	st.On("GetBooking", mock.Anything, int64(10)).Return(existing, nil)
	st.On("GetClient", mock.Anything, int64(999)).Return(nil, store.ErrNotFound)

	svc, _ := newTestService(st)

	_, err := svc.Update(context.Background(), 10, UpdateRequest{
		ClientID: 999, StartsAt: existing.StartsAt, DurationMinutes: 60,
	})
	assert.ErrorIs(t, err, ErrValidation)
	st.AssertNotCalled(t, "UpdateBookingWithVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Update_StaleVersionRejected(t *testing.T) {
	st := new(mockStore)
	existing := &models.Booking{ID: 10, Status: models.StatusPending, StartsAt: time.Now(), Version: 5}
	st.On("GetBooking", mock.Anything, int64(10)).Return(existing, nil)

	svc, _ := newTestService(st)

	_, err := svc.Update(context.Background(), 10, UpdateRequest{
		StartsAt: time.Now(), DurationMinutes: 30, ExpectedVersion: 4,
	})
	assert.ErrorIs(t, err, ErrVersionConflict)
	st.AssertNotCalled(t, "UpdateBookingWithVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Delete_PublishesEvent(t *testing.T) {
	st := new(mockStore)
	st.On("DeleteBooking", mock.Anything, int64(10)).Return(nil)

	svc, bus := newTestService(st)
	captured := captureBus(bus, events.TypeBookingDeleted)

	assert.NoError(t, svc.Delete(context.Background(), 10))
	assert.Equal(t, []string{events.TypeBookingDeleted}, captured.types)
}
