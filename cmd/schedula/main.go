package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ayoubkh/schedula/internal/aggregates"
	"github.com/ayoubkh/schedula/internal/app"
	"github.com/ayoubkh/schedula/internal/booking"
	"github.com/ayoubkh/schedula/internal/calendar"
	"github.com/ayoubkh/schedula/internal/conflict"
	"github.com/ayoubkh/schedula/internal/handlers"
	"github.com/ayoubkh/schedula/internal/outbox"
	"github.com/ayoubkh/schedula/internal/recurrence"
	"github.com/ayoubkh/schedula/internal/reminders"
	"github.com/ayoubkh/schedula/internal/storage"
	"github.com/ayoubkh/schedula/libs/config"
	"github.com/ayoubkh/schedula/libs/db"
	"github.com/ayoubkh/schedula/libs/httpx"
	"github.com/ayoubkh/schedula/libs/kafkax"
	otelx "github.com/ayoubkh/schedula/libs/otel"
	"github.com/ayoubkh/schedula/libs/runtime"
)

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "schedula")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		MinConns: int32(config.Int("DB_MIN_CONNS", 1)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if err := app.Migrate(ctx, pool, logger); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	var redisClient *redis.Client
	if redisURL := config.String("REDIS_URL", ""); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "err", err)
			panic(err)
		}
		redisClient = redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()
	}

	ruleRepo := storage.NewRuleRepository(pool)
	apptRepo := storage.NewAppointmentRepository(pool)
	templateRepo := storage.NewTemplateRepository(pool)
	reminderRepo := storage.NewReminderRepository(pool)
	catalogRepo := storage.NewCatalogRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	calendarStore := calendar.NewStore(ruleRepo)
	detector := conflict.NewDetector(apptRepo)
	scheduler := reminders.NewScheduler(reminderRepo)
	recorder := aggregates.NewRecorder(pool, apptRepo, catalogRepo, logger)
	coordinator := booking.NewCoordinator(pool, apptRepo, catalogRepo, reminderRepo, scheduler, detector, outboxRepo, recorder, logger)
	expander := recurrence.NewExpander(pool, templateRepo, apptRepo, catalogRepo, reminderRepo, scheduler, detector, outboxRepo, redisClient, logger)

	reminderBackoff := config.Duration("REMINDER_LEASE_BACKOFF", 5*time.Minute)
	reminderService := reminders.NewService(pool, reminderRepo, reminderBackoff)
	reminderWorker := reminders.NewWorker(pool, reminderRepo, outboxRepo, logger, reminders.WorkerConfig{
		BatchSize: config.Int("REMINDER_BATCH_SIZE", 100),
		Backoff:   reminderBackoff,
	})

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	horizonDays := config.Int("EXPANSION_HORIZON_DAYS", recurrence.DefaultHorizonDays)
	scheduled := cron.New()
	if _, err := scheduled.AddFunc(config.String("EXPANSION_CRON", "17 3 * * *"), func() {
		sum, err := expander.ExpandAll(ctx, horizonDays)
		if err != nil {
			logger.Error("scheduled expansion failed", "err", err)
			return
		}
		logger.Info("scheduled expansion finished",
			"created", sum.Created, "skipped_existing", sum.SkippedExisting, "skipped_conflict", sum.SkippedConflict)
	}); err != nil {
		logger.Error("invalid expansion cron spec", "err", err)
		panic(err)
	}
	if _, err := scheduled.AddFunc(config.String("REMINDER_CRON", "@every 1m"), func() {
		reminderWorker.Tick(ctx)
	}); err != nil {
		logger.Error("invalid reminder cron spec", "err", err)
		panic(err)
	}
	scheduled.Start()
	defer scheduled.Stop()

	slotsHandler := handlers.NewSlotsHandler(pool, calendarStore, catalogRepo, apptRepo, logger)
	bookingHandler := handlers.NewBookingHandler(coordinator, apptRepo, logger)
	availabilityHandler := handlers.NewAvailabilityHandler(ruleRepo, logger)
	recurringHandler := handlers.NewRecurringHandler(expander, templateRepo, logger)
	remindersHandler := handlers.NewRemindersHandler(reminderService, logger)
	statsHandler := handlers.NewStatsHandler(recorder, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	if redisClient != nil {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/slots", slotsHandler.List)
	mux.HandleFunc("/api/v1/appointments", bookingHandler.List)
	mux.HandleFunc("/api/v1/availability/rules", availabilityHandler.Rules)
	mux.HandleFunc("/api/v1/availability/exceptions", availabilityHandler.Exceptions)
	mux.HandleFunc("/api/v1/recurring/templates", recurringHandler.CreateTemplate)
	mux.HandleFunc("/api/v1/recurring/expand", recurringHandler.Expand)
	mux.HandleFunc("/api/v1/recurring/deactivate", recurringHandler.Deactivate)
	mux.HandleFunc("/api/v1/reminders/due", remindersHandler.Due)
	mux.HandleFunc("/api/v1/reminders/mark", remindersHandler.Mark)
	mux.HandleFunc("/api/v1/stats", statsHandler.Get)

	// The public booking endpoints get their own rate limit.
	bookingLimit := config.Int("BOOKING_RATE_LIMIT", 30)
	bookingWindow := config.Duration("BOOKING_RATE_WINDOW", time.Minute)
	var limit httpx.Middleware
	if redisClient != nil {
		limit = httpx.NewRedisRateLimiter(redisClient, bookingLimit, bookingWindow, "schedula:rl:booking").Middleware(logger, true)
	} else {
		limit = httpx.NewRateLimiter(bookingLimit, bookingWindow).Middleware()
	}
	mux.Handle("/api/v1/bookings", httpx.Chain(http.HandlerFunc(bookingHandler.Create), limit))
	mux.Handle("/api/v1/bookings/reschedule", httpx.Chain(http.HandlerFunc(bookingHandler.Reschedule), limit))
	mux.Handle("/api/v1/bookings/cancel", httpx.Chain(http.HandlerFunc(bookingHandler.Cancel), limit))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(config.Duration("HTTP_TIMEOUT", 15*time.Second)),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, service)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
