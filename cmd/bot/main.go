package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"study_streak_bot/internal/app"
	"study_streak_bot/internal/domain/activity"
	"study_streak_bot/internal/infra/cache"
	"study_streak_bot/internal/infra/config"
	idb "study_streak_bot/internal/infra/database"
	"study_streak_bot/internal/infra/logger"
	"study_streak_bot/internal/infra/metrics"
	"study_streak_bot/internal/infra/scheduler"
	"study_streak_bot/internal/infra/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const shutdownTimeout = 30 * time.Second

func main() {
	fmt.Println("Study Streak Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")

	mainLogger.WithFields(logrus.Fields{
		"environment":      cfg.Environment,
		"timezone":         cfg.Location.String(),
		"activity_backend": cfg.ActivityBackend,
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	if err := idb.EnsureSchema(ctx, db); err != nil {
		mainLogger.WithError(err).Fatal("Could not apply database schema")
	}
	mainLogger.Info("Database connection established successfully.")

	// Initialize Repositories
	notificationRepo := idb.NewPostgresNotificationRepository(db)
	permissionRepo := idb.NewPostgresPermissionRepository(db)

	var activityStore activity.Store
	switch cfg.ActivityBackend {
	case config.ActivityBackendRedis:
		client, err := cache.NewClient(ctx, cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to Redis")
		}
		defer client.Close()
		activityStore = cache.NewRedisActivityStore(client)
	default:
		activityStore = idb.NewPostgresActivityRepository(db)
	}
	mainLogger.WithField("backend", cfg.ActivityBackend).Info("Activity store initialized.")

	registry := prometheus.NewRegistry()
	observer, err := metrics.NewObserver(registry)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not register metrics")
	}

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := logger.Component("telebot").WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID)
			}
			entry.Error("Unhandled bot error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}
	deliverer := telegram.NewTelebotAdapter(bot)

	// Initialize Services
	reminderService := app.NewReminderService(
		notificationRepo,
		permissionRepo,
		app.NewRandomPicker(time.Now().UnixNano()),
		nil,
		cfg.Location,
		observer,
		logger.Component("reminder_service"),
	)
	activityService := app.NewActivityService(activityStore, telegram.SenderIdentity{}, nil, cfg.Location, observer, logger.Component("activity_service"))
	calendarService := app.NewCalendarService(activityStore, nil, cfg.Location)
	preferenceService := app.NewPreferenceService(permissionRepo, reminderService, logger.Component("preference_service"))
	deliveryService := app.NewDeliveryService(
		notificationRepo,
		deliverer,
		permissionRepo,
		nil,
		cfg.Location,
		cfg.DispatchBatchSize,
		observer,
		logger.Component("delivery_service"),
	)

	// Register Handlers
	handlers := telegram.NewCommandHandlers(
		ctx,
		activityService,
		calendarService,
		reminderService,
		preferenceService,
		cfg.DefaultStreakHour,
		cfg.Location,
		logger.Component("telegram"),
	)
	telegram.RegisterBotCommands(bot, handlers)
	mainLogger.Info("Bot command handlers registered.")

	// Initialize DispatchScheduler
	dispatchScheduler := scheduler.NewDispatchScheduler(
		deliveryService,
		logger.Component("scheduler"),
		cfg.Location,
		cfg.CronSpecDispatch,
		0,
	)
	if err := dispatchScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start dispatch scheduler")
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(registry))
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				mainLogger.WithError(err).Error("Metrics server stopped")
			}
		}()
		mainLogger.WithField("addr", cfg.MetricsAddr).Info("Metrics endpoint listening.")
	}

	mainLogger.Info("Application setup complete. Bot and Scheduler are starting...")

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()

	<-ctx.Done() // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	bot.Stop()
	dispatchScheduler.Stop(shutdownCtx)
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			mainLogger.WithError(err).Warn("Metrics server shutdown failed")
		}
	}
	mainLogger.Info("Application shut down gracefully.")
}
