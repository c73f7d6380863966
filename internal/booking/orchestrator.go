package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"studiodesk/internal/events"
	"studiodesk/internal/metrics"
	"studiodesk/internal/models"
	"studiodesk/internal/notify"
	"studiodesk/internal/payments"
	"studiodesk/internal/synclog"
)

// OrchestratorStore is the read/write surface the orchestrator needs beyond
// what arrives in event payloads.
type OrchestratorStore interface {
	GetClient(ctx context.Context, id int64) (*models.Client, error)
	GetService(ctx context.Context, id int64) (*models.Service, error)
	SetPaymentOrderRef(ctx context.Context, bookingID int64, ref string) error
}

// PaymentOrders creates payment orders with an external provider.
type PaymentOrders interface {
	IsConfigured() bool
	CreateOrder(ctx context.Context, req payments.OrderRequest) (string, error)
}

// Alerter posts operational messages to the staff channel.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

// Mirror pushes booking rows to the external CRM view.
type Mirror interface {
	PushBooking(ctx context.Context, b *models.Booking, clientName, serviceName string) error
	ForgetBooking(bookingID int64)
}

// Orchestrator subscribes to booking events and runs their side effects:
// payment orders, client notifications, staff alerts, CRM mirroring. Every
// effect is best-effort and isolated; one failing never stops the others, and
// no failure ever reaches the publisher. Failures are logged and recorded in
// the sync log.
type Orchestrator struct {
	store    OrchestratorStore
	notifier notify.Notifier
	orders   PaymentOrders
	alerter  Alerter
	mirror   Mirror
	sink     synclog.Sink
	logger   *zerolog.Logger
	timeout  time.Duration
}

// NewOrchestrator wires the orchestrator. notifier is required; orders,
// alerter, mirror and sink may be nil when the channel is not configured.
func NewOrchestrator(
	store OrchestratorStore,
	notifier notify.Notifier,
	orders PaymentOrders,
	alerter Alerter,
	mirror Mirror,
	sink synclog.Sink,
	logger *zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:    store,
		notifier: notifier,
		orders:   orders,
		alerter:  alerter,
		mirror:   mirror,
		sink:     sink,
		logger:   logger,
		timeout:  30 * time.Second,
	}
}

// Register subscribes the orchestrator to the bus.
func (o *Orchestrator) Register(bus *events.Bus) {
	bus.Subscribe(events.TypeBookingCreated, o.onCreated)
	bus.Subscribe(events.TypeBookingTransitioned, o.onTransitioned)
	bus.Subscribe(events.TypeBookingUpdated, o.onUpdated)
	bus.Subscribe(events.TypeBookingDeleted, o.onDeleted)
}

func (o *Orchestrator) onCreated(event events.Event) error {
	var p CreatedPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		o.logger.Error().Err(err).Str("type", event.Type).Msg("decode event payload")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	o.pushMirror(ctx, &p.Booking)
	return nil
}

func (o *Orchestrator) onTransitioned(event events.Event) error {
	var p TransitionedPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		o.logger.Error().Err(err).Str("type", event.Type).Msg("decode event payload")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	b := &p.Booking

	switch b.Status {
	case models.StatusConfirmed:
		o.ensurePaymentOrder(ctx, b)
		o.notifyClient(ctx, notify.KindConfirmation, b)
	case models.StatusCancelled:
		o.notifyClient(ctx, notify.KindCancellation, b)
	case models.StatusCompleted:
		o.notifyClient(ctx, notify.KindCompletion, b)
	case models.StatusNoShow:
		o.notifyClient(ctx, notify.KindNoShow, b)
	}

	o.alertStaff(ctx, kindForStatus(b.Status), b, time.Time{})
	o.pushMirror(ctx, b)
	return nil
}

func (o *Orchestrator) onUpdated(event events.Event) error {
	var p UpdatedPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		o.logger.Error().Err(err).Str("type", event.Type).Msg("decode event payload")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	b := &p.Booking

	if ShouldNotifyReschedule(p.OldStartsAt, b.StartsAt) {
		o.notifyReschedule(ctx, b, p.OldStartsAt)
		o.alertStaff(ctx, notify.KindReschedule, b, p.OldStartsAt)
	}

	o.pushMirror(ctx, b)
	return nil
}

func (o *Orchestrator) onDeleted(event events.Event) error {
	var p DeletedPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		o.logger.Error().Err(err).Str("type", event.Type).Msg("decode event payload")
		return nil
	}
	if o.mirror != nil {
		o.mirror.ForgetBooking(p.BookingID)
	}
	return nil
}

// ensurePaymentOrder creates a payment order for a confirmed booking that has
// none yet and stores the provider reference. Skipped silently when no
// provider is configured or a reference already exists.
func (o *Orchestrator) ensurePaymentOrder(ctx context.Context, b *models.Booking) {
	if o.orders == nil || !o.orders.IsConfigured() || b.PaymentOrderRef != "" || b.TotalCents <= 0 {
		return
	}

	client, service := o.lookup(ctx, b)

	req := payments.OrderRequest{
		BookingID:   b.ID,
		AmountCents: b.TotalCents,
	}
	if client != nil {
		req.ClientName = client.Name
	}
	if service != nil {
		req.ServiceName = service.Name
	}

	ref, err := o.orders.CreateOrder(ctx, req)
	if err != nil {
		metrics.IncSideEffect("payment_order", "error")
		o.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("create payment order")
		o.record(ctx, synclog.Failure(synclog.ProviderPayments, "booking", b.ID, "create order", err))
		return
	}

	b.PaymentOrderRef = ref
	if err := o.store.SetPaymentOrderRef(ctx, b.ID, ref); err != nil {
		metrics.IncSideEffect("payment_order", "error")
		o.logger.Error().Err(err).Int64("booking_id", b.ID).Str("order_ref", ref).Msg("store payment order ref")
		o.record(ctx, synclog.Failure(synclog.ProviderPayments, "booking", b.ID, "store order ref "+ref, err))
		return
	}

	metrics.IncSideEffect("payment_order", "ok")
	o.logger.Info().Int64("booking_id", b.ID).Str("order_ref", ref).Msg("payment order created")
	o.record(ctx, synclog.Success(synclog.ProviderPayments, "booking", b.ID, "order "+ref))
}

// notifyClient sends a lifecycle notification, gated on the client having an
// address and not having opted out.
func (o *Orchestrator) notifyClient(ctx context.Context, kind notify.Kind, b *models.Booking) {
	client, service := o.lookup(ctx, b)
	if !client.CanNotify() {
		metrics.IncSideEffect("notify_"+string(kind), "skipped")
		return
	}

	data := o.templateData(b, client, service, time.Time{})
	if err := o.notifier.Send(ctx, kind, client.Email, data); err != nil {
		metrics.IncSideEffect("notify_"+string(kind), "error")
		o.logger.Error().Err(err).Int64("booking_id", b.ID).Str("kind", string(kind)).Msg("send notification")
		o.record(ctx, synclog.Failure(synclog.ProviderEmail, "booking", b.ID, string(kind), err))
		return
	}

	metrics.IncSideEffect("notify_"+string(kind), "ok")
	o.record(ctx, synclog.Success(synclog.ProviderEmail, "booking", b.ID, string(kind)))
}

func (o *Orchestrator) notifyReschedule(ctx context.Context, b *models.Booking, oldStartsAt time.Time) {
	client, service := o.lookup(ctx, b)
	if !client.CanNotify() {
		metrics.IncSideEffect("notify_reschedule", "skipped")
		return
	}

	data := o.templateData(b, client, service, oldStartsAt)
	if err := o.notifier.Send(ctx, notify.KindReschedule, client.Email, data); err != nil {
		metrics.IncSideEffect("notify_reschedule", "error")
		o.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("send reschedule notification")
		o.record(ctx, synclog.Failure(synclog.ProviderEmail, "booking", b.ID, "reschedule", err))
		return
	}

	metrics.IncSideEffect("notify_reschedule", "ok")
	o.record(ctx, synclog.Success(synclog.ProviderEmail, "booking", b.ID, "reschedule"))
}

func (o *Orchestrator) alertStaff(ctx context.Context, kind notify.Kind, b *models.Booking, oldStartsAt time.Time) {
	if o.alerter == nil || kind == "" {
		return
	}

	client, service := o.lookup(ctx, b)
	data := o.templateData(b, client, service, oldStartsAt)

	text := notify.FormatBookingAlert(kind, b.ID, data)
	if err := o.alerter.Alert(ctx, text); err != nil {
		metrics.IncSideEffect("staff_alert", "error")
		o.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("staff alert")
		o.record(ctx, synclog.Failure(synclog.ProviderTelegram, "booking", b.ID, string(kind), err))
		return
	}
	metrics.IncSideEffect("staff_alert", "ok")
}

func (o *Orchestrator) pushMirror(ctx context.Context, b *models.Booking) {
	if o.mirror == nil {
		return
	}

	client, service := o.lookup(ctx, b)
	clientName, serviceName := "", ""
	if client != nil {
		clientName = client.Name
	}
	if service != nil {
		serviceName = service.Name
	}

	if err := o.mirror.PushBooking(ctx, b, clientName, serviceName); err != nil {
		metrics.IncSideEffect("crm_mirror", "error")
		o.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("crm mirror push")
		o.record(ctx, synclog.Failure(synclog.ProviderSheets, "booking", b.ID, "push", err))
		return
	}
	metrics.IncSideEffect("crm_mirror", "ok")
}

// lookup loads the client and service for display fields. Either may come
// back nil; callers must cope.
func (o *Orchestrator) lookup(ctx context.Context, b *models.Booking) (*models.Client, *models.Service) {
	client, err := o.store.GetClient(ctx, b.ClientID)
	if err != nil {
		o.logger.Warn().Err(err).Int64("client_id", b.ClientID).Msg("lookup client for side effect")
	}
	service, err := o.store.GetService(ctx, b.ServiceID)
	if err != nil {
		o.logger.Warn().Err(err).Int64("service_id", b.ServiceID).Msg("lookup service for side effect")
	}
	return client, service
}

func (o *Orchestrator) templateData(b *models.Booking, client *models.Client, service *models.Service, oldStartsAt time.Time) notify.TemplateData {
	data := notify.TemplateData{
		StartsAt:   b.StartsAt.Format("2006-01-02 15:04"),
		Location:   b.Location,
		Reason:     b.CancellationReason,
		TotalCents: b.TotalCents,
	}
	if client != nil {
		data.ClientName = client.Name
	}
	if service != nil {
		data.ServiceName = service.Name
	}
	if !oldStartsAt.IsZero() {
		data.OldStartsAt = oldStartsAt.Format("2006-01-02 15:04")
	}
	return data
}

// record appends a sync-log entry, itself best-effort.
func (o *Orchestrator) record(ctx context.Context, e synclog.Entry) {
	if o.sink == nil {
		return
	}
	if err := o.sink.Append(ctx, e); err != nil {
		o.logger.Error().Err(err).Str("provider", e.Provider).Msg("append sync log")
	}
}

func kindForStatus(s models.BookingStatus) notify.Kind {
	switch s {
	case models.StatusConfirmed:
		return notify.KindConfirmation
	case models.StatusCancelled:
		return notify.KindCancellation
	case models.StatusCompleted:
		return notify.KindCompletion
	case models.StatusNoShow:
		return notify.KindNoShow
	}
	return ""
}
