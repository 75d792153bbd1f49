// Package main - точка входа для фоновых процессов (Worker) DevPrep Engine.
//
// Worker отвечает за периодические задачи:
// - Пересборка недельных и месячных сводок активности
// - Напоминания пользователям, чей стрик сгорает в полночь
// - Пересчёт агрегатов статистики по пробным тестам
//
// Worker не поднимает HTTP API и не подписывается на событийную шину:
// все его задачи читают персистентное состояние и идемпотентны, так
// что процесс можно перезапускать в любой момент.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/devprep-hub/devprep-engine/config"
	"github.com/devprep-hub/devprep-engine/internal/domain/analytics"
	"github.com/devprep-hub/devprep-engine/internal/infrastructure/persistence/postgres"
	"github.com/devprep-hub/devprep-engine/internal/infrastructure/scheduler"
	"github.com/devprep-hub/devprep-engine/internal/infrastructure/scheduler/jobs"
	"github.com/devprep-hub/devprep-engine/internal/infrastructure/service"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.Observability.AddCaller,
	})
	log.Info("starting DevPrep Engine Worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := connectDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ (Worker также должен иметь актуальную схему)
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.RunMigrations {
		log.Info("checking database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ И СЕРВИСОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	analyticsRepo := postgres.NewAnalyticsRepository(dbConn)
	streakRepo := postgres.NewStreakRepository(dbConn)
	notificationRepo := postgres.NewNotificationRepository(dbConn)
	testRepo := postgres.NewTestRepository(dbConn)
	attemptRepo := postgres.NewAttemptRepository(dbConn)
	statsRepo := postgres.NewStatsRepository(dbConn)

	sender := service.NewLogSender(log)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing scheduler...")
	sched := scheduler.New(scheduler.Config{Logger: log, Timezone: cfg.App.Location})

	rollupCfg := jobs.DefaultRollupConfig()
	rollupCfg.Timeout = cfg.Scheduler.JobTimeout

	weekly := jobs.NewRollupJob(analyticsRepo, analytics.PeriodWeekly, rollupCfg, log)
	if err := sched.Register(weekly, scheduler.Every(cfg.Scheduler.RollupInterval)); err != nil {
		return fmt.Errorf("failed to register weekly rollup: %w", err)
	}

	monthly := jobs.NewRollupJob(analyticsRepo, analytics.PeriodMonthly, rollupCfg, log)
	if err := sched.Register(monthly, scheduler.Every(cfg.Scheduler.RollupInterval)); err != nil {
		return fmt.Errorf("failed to register monthly rollup: %w", err)
	}

	reminderCfg := jobs.DefaultStreakReminderConfig()
	reminderCfg.BatchLimit = cfg.Scheduler.StreakReminderBatch
	reminder := jobs.NewStreakReminderJob(streakRepo, notificationRepo, sender, reminderCfg, log)

	reminderSchedule, err := scheduler.ParseCron(cfg.Scheduler.StreakReminderCron)
	if err != nil {
		return fmt.Errorf("invalid streak reminder cron: %w", err)
	}
	if err := sched.Register(reminder, reminderSchedule); err != nil {
		return fmt.Errorf("failed to register streak reminder: %w", err)
	}

	rebuildCfg := jobs.DefaultRebuildTestStatsConfig()
	rebuildCfg.Timeout = cfg.Scheduler.JobTimeout
	rebuild := jobs.NewRebuildTestStatsJob(testRepo, attemptRepo, statsRepo, rebuildCfg, log)

	rebuildSchedule, err := scheduler.ParseCron(cfg.Scheduler.StatsRebuildCron)
	if err != nil {
		return fmt.Errorf("invalid stats rebuild cron: %w", err)
	}
	if err := sched.Register(rebuild, rebuildSchedule); err != nil {
		return fmt.Errorf("failed to register stats rebuild: %w", err)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("DevPrep Engine Worker is running", logger.String("timezone", cfg.App.Timezone))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", logger.String("signal", sig.String()))

	log.Info("stopping scheduler...")
	if err := sched.Stop(); err != nil {
		log.Error("failed to stop scheduler", logger.Err(err))
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// connectDatabase подключается по DATABASE_URL, если задан, иначе
// собирает конфигурацию из отдельных DB_* переменных.
func connectDatabase(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
	if cfg.Database.URL != "" {
		return postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	}

	pgCfg := postgres.DefaultConfig()
	pgCfg.Host = cfg.Database.Host
	pgCfg.Port = cfg.Database.Port
	pgCfg.Database = cfg.Database.Database
	pgCfg.User = cfg.Database.User
	pgCfg.Password = cfg.Database.Password
	pgCfg.SSLMode = cfg.Database.SSLMode
	pgCfg.MaxConns = int32(cfg.Database.MaxConns)
	pgCfg.MinConns = int32(cfg.Database.MinConns)
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout

	return postgres.NewConnection(ctx, pgCfg)
}
