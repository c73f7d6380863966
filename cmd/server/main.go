package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"studiodesk/internal/api"
	"studiodesk/internal/availability"
	"studiodesk/internal/booking"
	"studiodesk/internal/config"
	"studiodesk/internal/crm"
	"studiodesk/internal/events"
	"studiodesk/internal/metrics"
	"studiodesk/internal/notify"
	"studiodesk/internal/payments"
	"studiodesk/internal/store"
	"studiodesk/internal/synclog"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("STUDIODESK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := store.Open(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus(&logger)
	cache := availability.NewCache(rdb, cfg.CacheTTL())
	availSvc := availability.NewService(db, cache, bus, &logger)
	bookingSvc := booking.NewService(db, bus, &logger)

	var notifier notify.Notifier = notify.NewLogNotifier(&logger)
	notifier = notify.NewRateLimited(notifier, cfg.Notifications.PerSecond, cfg.Notifications.Burst)

	alerter, err := notify.NewTelegramAlerter(cfg.Telegram.BotToken, cfg.Telegram.StaffChatID, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create telegram alerter")
	}

	mirror, err := crm.NewSheetsService(ctx, cfg.Sheets.CredentialsPath, cfg.Sheets.SpreadsheetID, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create sheets service")
	}

	paymentClient := payments.NewClient(cfg.Payments.BaseURL, cfg.Payments.APIKey, cfg.Payments.Currency)

	var alerterDep booking.Alerter
	if alerter != nil {
		alerterDep = alerter
	}
	var mirrorDep booking.Mirror
	if mirror != nil {
		mirrorDep = mirror
	}
	orch := booking.NewOrchestrator(db, notifier, paymentClient, alerterDep, mirrorDep, db, &logger)
	orch.Register(bus)

	// Heal mirror drift and seed the row cache so the first push per booking
	// updates in place instead of appending a duplicate.
	if mirror != nil {
		go syncMirror(ctx, db, mirror, &logger)
	}

	exportCfg := &synclog.ExportConfig{
		RetentionDays: cfg.SyncLog.RetentionDays,
		ExportOnStart: cfg.SyncLog.ExportOnStart,
		ReportName:    "studiodesk",
	}
	var sender synclog.ReportSender
	if alerter != nil {
		sender = alerter
	}
	export := synclog.NewExportService(exportCfg, db, synclog.NewExcelizeWriter, sender, db, &logger)
	export.Start()
	defer export.Stop()

	reminders := notify.NewReminders(db, notifier, cfg.Notifications.ReminderHour, &logger)
	reminders.Start(ctx)

	backup := store.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
	go backup.Start(ctx)

	if cfg.Server.HealthCheckPort == 0 {
		cfg.Server.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Server.HealthCheckPort, db, rdb, &logger)

	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = 9090
	}
	metrics.Register()
	go startMetricsServer(ctx, cfg.Server.MetricsPort, &logger)

	server := api.NewHTTPServer(cfg.Server.Addr, db, bookingSvc, availSvc, &logger)
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctxShutdown)
	}()

	logger.Info().Msg("studiodesk started")
	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("api server error")
	}
}

// syncMirror rewrites the CRM sheet from the full booking list at startup.
func syncMirror(ctx context.Context, db *store.DB, mirror *crm.SheetsService, logger *zerolog.Logger) {
	syncCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	bookings, err := db.ListBookings(syncCtx, store.BookingFilter{})
	if err != nil {
		logger.Error().Err(err).Msg("list bookings for crm sync")
		return
	}

	clientNames := make(map[int64]string)
	clientName := func(id int64) string {
		if name, ok := clientNames[id]; ok {
			return name
		}
		name := ""
		if c, err := db.GetClient(syncCtx, id); err == nil {
			name = c.Name
		}
		clientNames[id] = name
		return name
	}
	serviceNames := make(map[int64]string)
	serviceName := func(id int64) string {
		if name, ok := serviceNames[id]; ok {
			return name
		}
		name := ""
		if svc, err := db.GetService(syncCtx, id); err == nil {
			name = svc.Name
		}
		serviceNames[id] = name
		return name
	}

	if err := mirror.SyncAll(syncCtx, bookings, clientName, serviceName); err != nil {
		logger.Error().Err(err).Msg("crm full sync")
	}
}

func startHealthServer(ctx context.Context, port int, db *store.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
