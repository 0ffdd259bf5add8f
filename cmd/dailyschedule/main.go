package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"daily-schedule/internal/api"
	"daily-schedule/internal/bot"
	"daily-schedule/internal/config"
	"daily-schedule/internal/lifecycle"
	"daily-schedule/internal/repository"
	"daily-schedule/internal/service"
	"daily-schedule/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout.Duration, zapLogger)
	defer func() {
		if err := manager.Shutdown(context.Background()); err != nil {
			zapLogger.Error("graceful shutdown error", zap.Error(err))
		}
	}()

	checks := make(map[string]api.HealthCheck)

	var db *gorm.DB
	if cfg.BotEnabled() || cfg.Store.Backend == config.BackendSQLite {
		db, err = repository.NewDB(cfg.Store.DatabaseURL, zapLogger)
		if err != nil {
			zapLogger.Fatal("database connection failed", zap.Error(err))
		}
		sqlDB, err := db.DB()
		if err != nil {
			zapLogger.Fatal("database handle", zap.Error(err))
		}
		manager.Register("sqlite", func(context.Context) error { return sqlDB.Close() })
		checks["sqlite"] = sqlDB.PingContext
	}

	store, err := openStore(cfg, db, manager, checks)
	if err != nil {
		zapLogger.Error("store open failed", zap.String("backend", cfg.Store.Backend), zap.Error(err))
		return
	}
	zapLogger.Info("store ready", zap.String("backend", cfg.Store.Backend))

	schedules := service.NewScheduleManager(store, zapLogger.Named("schedule"), nil)
	reminders := service.NewReminderService(schedules)

	if cfg.HTTPEnabled() {
		startHTTP(cfg, schedules, checks, manager, zapLogger, stop)
	}

	if !cfg.BotEnabled() {
		zapLogger.Info("telegram bot disabled")
		<-ctx.Done()
		return
	}

	telegramBot, err := bot.New(cfg.TelegramToken, repository.NewUserRepository(db), schedules, reminders, zapLogger, cfg.Location)
	if err != nil {
		zapLogger.Error("bot init failed", zap.Error(err))
		return
	}

	if cfg.ReportsEnabled() {
		scheduler := service.NewSchedulerService(cfg.Location, zapLogger)
		if _, err := scheduler.ScheduleDaily(cfg.ReportTime, "daily-report", telegramBot.SendDailyReports); err != nil {
			zapLogger.Error("schedule reports", zap.Error(err))
			return
		}
		scheduler.Start()
		manager.Register("scheduler", func(context.Context) error {
			scheduler.Stop()
			return nil
		})
	}

	zapLogger.Info("daily schedule bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zapLogger.Error("bot stopped with error", zap.Error(err))
	}
	zapLogger.Info("shutting down")
}

// openStore builds the schedule backend selected in the config.
func openStore(cfg config.Config, db *gorm.DB, manager *lifecycle.Manager, checks map[string]api.HealthCheck) (repository.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		return repository.NewEntryRepository(db), nil
	case config.BackendBolt:
		bolt, err := repository.OpenBolt(cfg.Store.BoltPath, "")
		if err != nil {
			return nil, err
		}
		manager.Register("bolt", func(context.Context) error { return bolt.Close() })
		return bolt, nil
	case config.BackendRedis:
		client, err := repository.NewRedisClient(cfg.Store.RedisURL)
		if err != nil {
			return nil, err
		}
		store := repository.NewRedisStore(client)
		manager.Register("redis", func(context.Context) error { return store.Close() })
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return store, nil
	case config.BackendMemory:
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// startHTTP serves the API in the background. A listener failure cancels the
// root context so the deferred shutdown still runs.
func startHTTP(cfg config.Config, schedules *service.ScheduleManager, checks map[string]api.HealthCheck, manager *lifecycle.Manager, zapLogger *zap.Logger, stop context.CancelFunc) {
	opts := api.Options{
		Logger:         zapLogger.Named("http"),
		RequestTimeout: cfg.Context.RequestTimeout.Duration,
		Location:       cfg.Location,
	}
	r := api.NewRouter(api.Handlers{
		Schedule: api.NewScheduleHandler(schedules, opts),
		Template: api.NewTemplateHandler(schedules, opts),
		Diary:    api.NewDiaryHandler(schedules, opts),
		Health:   api.NewHealthHandler(checks, opts),
	})

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout.Duration,
		WriteTimeout: cfg.HTTP.WriteTimeout.Duration,
		Name:         "daily-schedule",
	}

	go func() {
		zapLogger.Info("http server started", zap.String("address", cfg.HTTP.Addr))
		if err := server.ListenAndServe(cfg.HTTP.Addr); err != nil {
			zapLogger.Error("http server crashed", zap.Error(err))
			stop()
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})
}
