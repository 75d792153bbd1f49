// Package main - точка входа для HTTP API процесса DevPrep Engine.
//
// Engine считает прогресс, mastery, стрики и достижения поверх потока
// учебных событий. Архитектура следует принципам Clean Architecture:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries/Sagas)
// - Infrastructure: репозитории, кеши, внешний каталог курсов
// - Interface: HTTP endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/devprep-hub/devprep-engine/config"

	// Domain layer
	"github.com/devprep-hub/devprep-engine/internal/domain/analytics"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"

	// Application layer
	"github.com/devprep-hub/devprep-engine/internal/application/command"
	"github.com/devprep-hub/devprep-engine/internal/application/eventhandler"
	"github.com/devprep-hub/devprep-engine/internal/application/query"
	"github.com/devprep-hub/devprep-engine/internal/application/saga"

	// Infrastructure layer
	"github.com/devprep-hub/devprep-engine/internal/domain/achievement"
	"github.com/devprep-hub/devprep-engine/internal/infrastructure/external/catalog"
	"github.com/devprep-hub/devprep-engine/internal/infrastructure/messaging"
	"github.com/devprep-hub/devprep-engine/internal/infrastructure/persistence/postgres"
	"github.com/devprep-hub/devprep-engine/internal/infrastructure/persistence/redis"
	"github.com/devprep-hub/devprep-engine/internal/infrastructure/scheduler"
	"github.com/devprep-hub/devprep-engine/internal/infrastructure/scheduler/jobs"
	"github.com/devprep-hub/devprep-engine/internal/infrastructure/service"

	// Interface layer
	httpserver "github.com/devprep-hub/devprep-engine/internal/interface/http"
	"github.com/devprep-hub/devprep-engine/internal/interface/http/handlers"

	// Packages
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
	log.Info("starting DevPrep Engine",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
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
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.RunMigrations {
		log.Info("running database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to Redis...")
	redisClient, err := redis.NewClient(redisConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer func() {
		log.Info("closing Redis connection...")
		_ = redisClient.Close()
	}()

	structureCache := redis.NewStructureCache(redisClient)
	scoreDistribution := redis.NewScoreDistribution(redisClient)
	log.Info("Redis connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ ВНЕШНИХ КЛИЕНТОВ (каталог курсов)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing catalog client...")
	catConfig := catalog.DefaultClientConfig(cfg.Catalog.BaseURL)
	catConfig.APIKey = cfg.Catalog.APIKey
	catConfig.Timeout = cfg.Catalog.RequestTimeout
	catConfig.MaxAttempts = cfg.Catalog.MaxRetries
	catConfig.Logger = log
	catalogClient := catalog.NewClient(catConfig)

	structures := catalog.NewCachedProvider(catalogClient, structureCache, cfg.Redis.StructureTTL, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBus := messaging.NewInMemoryEventBus(messaging.Config{
		AsyncMode:      cfg.EventBus.AsyncMode,
		WorkerPoolSize: cfg.EventBus.WorkerPoolSize,
		Logger:         log,
	})
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	progressRepo := postgres.NewProgressRepository(dbConn)
	streakRepo := postgres.NewStreakRepository(dbConn)
	enrollmentRepo := postgres.NewEnrollmentRepository(dbConn)
	userAchRepo := postgres.NewUserAchievementRepository(dbConn)
	testRepo := postgres.NewTestRepository(dbConn)
	attemptRepo := postgres.NewAttemptRepository(dbConn)
	quizRepo := postgres.NewQuizAttemptRepository(dbConn)
	statsRepo := postgres.NewStatsRepository(dbConn)
	pathRepo := postgres.NewPathRepository(dbConn)
	analyticsRepo := postgres.NewAnalyticsRepository(dbConn)
	notificationRepo := postgres.NewNotificationRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ДОМЕННЫЕ СЕРВИСЫ
	// ─────────────────────────────────────────────────────────────────────────
	defCatalog, err := service.NewDefaultDefinitionCatalog()
	if err != nil {
		return fmt.Errorf("failed to load achievement definitions: %w", err)
	}
	definitions, err := defCatalog.ListDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list achievement definitions: %w", err)
	}
	evaluator := achievement.NewEvaluator(definitions)

	sender := service.NewLogSender(log)
	historyProvider := service.NewHistoryProvider(quizRepo, progressRepo, structures)
	statsProvider := service.NewStatsProvider(
		progressRepo, streakRepo, enrollmentRepo, quizRepo, attemptRepo, structures, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. APPLICATION LAYER (Commands, Queries, Sagas)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	applyEventCmd := command.NewApplyEventHandler(
		progressRepo, streakRepo, structures, enrollmentRepo,
		evaluator, userAchRepo, statsProvider, analyticsRepo,
		eventBus, log, command.DefaultApplyEventHandlerConfig())
	enrollCmd := command.NewEnrollCourseHandler(enrollmentRepo, structures, log)
	submitAttemptCmd := command.NewSubmitAttemptHandler(
		testRepo, attemptRepo, scoreDistribution, structures,
		evaluator, userAchRepo, statsProvider, eventBus, log)
	submitQuizCmd := command.NewSubmitQuizHandler(testRepo, quizRepo, applyEventCmd, eventBus, log)
	updateTimezoneCmd := command.NewUpdateTimezoneHandler(streakRepo, log)

	courseProgressQuery := query.NewGetCourseProgressHandler(progressRepo, structures, historyProvider)
	streakQuery := query.NewGetStreakHandler(streakRepo)
	achievementsQuery := query.NewGetAchievementsHandler(defCatalog, userAchRepo)
	pathProgressQuery := query.NewGetPathProgressHandler(pathRepo, progressRepo, attemptRepo)
	attemptAnalysisQuery := query.NewGetAttemptAnalysisHandler(testRepo, attemptRepo)

	unlockFlow := saga.NewUnlockFlowSaga(defCatalog, sender, notificationRepo, analyticsRepo, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 11. РЕГИСТРАЦИЯ EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")

	unlockHandler := eventhandler.NewOnAchievementUnlockedHandler(unlockFlow, log)
	milestoneHandler := eventhandler.NewOnProgressMilestoneHandler(
		sender, notificationRepo, log, eventhandler.DefaultProgressMilestoneConfig())
	streakHandler := eventhandler.NewOnStreakChangedHandler(
		sender, notificationRepo, log, eventhandler.DefaultStreakChangedConfig())

	subscriptions := []struct {
		eventType shared.EventType
		handler   shared.EventHandler
	}{
		{shared.EventAchievementUnlocked, unlockHandler.Handle},
		{shared.EventConceptCompleted, milestoneHandler.Handle},
		{shared.EventCourseCompleted, milestoneHandler.Handle},
		{shared.EventStreakExtended, streakHandler.Handle},
		{shared.EventStreakBroken, streakHandler.Handle},
	}
	for _, s := range subscriptions {
		if err := eventBus.Subscribe(s.eventType, s.handler); err != nil {
			return fmt.Errorf("failed to subscribe handler for %s: %w", s.eventType, err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. SCHEDULER (фоновые задачи)
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		log.Info("initializing scheduler...")
		sched = scheduler.New(scheduler.Config{Logger: log, Timezone: cfg.App.Location})

		if err := registerJobs(sched, cfg, log, jobDeps{
			analytics:     analyticsRepo,
			streaks:       streakRepo,
			notifications: notificationRepo,
			sender:        sender,
			tests:         testRepo,
			attempts:      attemptRepo,
			stats:         statsRepo,
		}); err != nil {
			return fmt.Errorf("failed to register jobs: %w", err)
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		log.Info("scheduler disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 13. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewPingCheck(dbConn))
	healthChecker.AddCheck("cache", handlers.NewPingCheck(redisClient))
	healthChecker.AddCheck("catalog", handlers.NewCatalogCheck(catalogClient))

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpConfig.APIKeys = cfg.HTTP.APIKeys

	httpServer := httpserver.NewServer(httpConfig, httpserver.Dependencies{
		ApplyEventHandler:         applyEventCmd,
		EnrollCourseHandler:       enrollCmd,
		SubmitAttemptHandler:      submitAttemptCmd,
		SubmitQuizHandler:         submitQuizCmd,
		UpdateTimezoneHandler:     updateTimezoneCmd,
		GetCourseProgressHandler:  courseProgressQuery,
		GetStreakHandler:          streakQuery,
		GetAchievementsHandler:    achievementsQuery,
		GetPathProgressHandler:    pathProgressQuery,
		GetAttemptAnalysisHandler: attemptAnalysisQuery,
		Logger:                    log,
		HealthChecker:             healthChecker,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", logger.String("address", httpServer.Address()))
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 14. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("DevPrep Engine is running",
		logger.String("http_address", httpServer.Address()),
		logger.Bool("scheduler", cfg.Scheduler.Enabled),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("service error", logger.Err(err))
		return err
	}

	log.Info("starting graceful shutdown...", logger.String("timeout", cfg.App.ShutdownTimeout.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error

	log.Info("stopping HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		shutdownErr = err
	}

	if sched != nil {
		log.Info("stopping scheduler...")
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler", logger.Err(err))
			shutdownErr = err
		}
	}

	// Event bus, Redis и база данных закроются через defer.

	if shutdownErr != nil {
		log.Warn("shutdown completed with errors")
	} else {
		log.Info("shutdown completed successfully")
	}

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

func redisConfig(cfg *config.Config) redis.Config {
	rCfg := redis.DefaultConfig()
	rCfg.Host = cfg.Redis.Host
	rCfg.Port = cfg.Redis.Port
	rCfg.Password = cfg.Redis.Password
	rCfg.DB = cfg.Redis.DB
	rCfg.PoolSize = cfg.Redis.PoolSize
	rCfg.MinIdleConns = cfg.Redis.MinIdleConns
	rCfg.MaxRetries = cfg.Redis.MaxRetries
	rCfg.DialTimeout = cfg.Redis.DialTimeout
	rCfg.ReadTimeout = cfg.Redis.ReadTimeout
	rCfg.WriteTimeout = cfg.Redis.WriteTimeout
	return rCfg
}

// jobDeps собирает зависимости фоновых задач в одну структуру, чтобы
// registerJobs не тянул десяток аргументов.
type jobDeps struct {
	analytics     analytics.Repository
	streaks       *postgres.StreakRepository
	notifications *postgres.NotificationRepository
	sender        *service.LogSender
	tests         *postgres.TestRepository
	attempts      *postgres.AttemptRepository
	stats         *postgres.StatsRepository
}

// registerJobs регистрирует фоновые задачи: пересборку недельных и
// месячных сводок, напоминания о стрике и пересчёт статистики тестов.
func registerJobs(sched *scheduler.Scheduler, cfg *config.Config, log *logger.Logger, deps jobDeps) error {
	rollupCfg := jobs.DefaultRollupConfig()
	rollupCfg.Timeout = cfg.Scheduler.JobTimeout

	weekly := jobs.NewRollupJob(deps.analytics, analytics.PeriodWeekly, rollupCfg, log)
	if err := sched.Register(weekly, scheduler.Every(cfg.Scheduler.RollupInterval)); err != nil {
		return err
	}

	monthly := jobs.NewRollupJob(deps.analytics, analytics.PeriodMonthly, rollupCfg, log)
	if err := sched.Register(monthly, scheduler.Every(cfg.Scheduler.RollupInterval)); err != nil {
		return err
	}

	reminderCfg := jobs.DefaultStreakReminderConfig()
	reminderCfg.BatchLimit = cfg.Scheduler.StreakReminderBatch
	reminder := jobs.NewStreakReminderJob(deps.streaks, deps.notifications, deps.sender, reminderCfg, log)

	reminderSchedule, err := scheduler.ParseCron(cfg.Scheduler.StreakReminderCron)
	if err != nil {
		return fmt.Errorf("invalid streak reminder cron: %w", err)
	}
	if err := sched.Register(reminder, reminderSchedule); err != nil {
		return err
	}

	rebuildCfg := jobs.DefaultRebuildTestStatsConfig()
	rebuildCfg.Timeout = cfg.Scheduler.JobTimeout
	rebuild := jobs.NewRebuildTestStatsJob(deps.tests, deps.attempts, deps.stats, rebuildCfg, log)

	rebuildSchedule, err := scheduler.ParseCron(cfg.Scheduler.StatsRebuildCron)
	if err != nil {
		return fmt.Errorf("invalid stats rebuild cron: %w", err)
	}
	return sched.Register(rebuild, rebuildSchedule)
}
