// Package config loads the engine configuration from environment
// variables. Every knob has a default suitable for local development;
// production deployments override through the environment only.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration.
type Config struct {
	// Application
	App AppConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Course catalog upstream
	Catalog CatalogConfig

	// HTTP API
	HTTP HTTPConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Event bus
	EventBus EventBusConfig

	// Observability
	Observability ObservabilityConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string
	Environment Environment
	Debug       bool
	Version     string

	// Timezone for scheduler boundaries (default: UTC). Per-user
	// streak and analytics bucketing always uses the user's own zone.
	Timezone string
	Location *time.Location

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// URL, when set, overrides the individual host/port/user fields.
	URL string

	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// Pool settings
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration

	// RunMigrations applies pending schema migrations on startup.
	RunMigrations bool
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int

	// Pool settings
	PoolSize     int
	MinIdleConns int
	MaxRetries   int

	// Timeouts
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// StructureTTL bounds how long cached course structures serve
	// reads before a refetch.
	StructureTTL time.Duration
}

// CatalogConfig holds course catalog API settings.
type CatalogConfig struct {
	BaseURL string
	APIKey  string

	RequestTimeout time.Duration
	MaxRetries     int
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	EnableCORS         bool
	AllowedOrigins     []string
	RateLimitPerMinute int

	// APIKeys guard the write endpoints. Empty disables auth.
	APIKeys []string
}

// SchedulerConfig holds background job settings.
type SchedulerConfig struct {
	// Enable/disable the scheduler as a whole.
	Enabled bool

	// RollupInterval is how often the weekly and monthly rollups rebuild.
	RollupInterval time.Duration

	// StreakReminderCron is the cron expression for the streak
	// reminder sweep (default: hourly, so every user timezone gets a
	// same-day warning).
	StreakReminderCron string

	// StatsRebuildCron is the cron expression for the mock-test stats
	// rebuild.
	StatsRebuildCron string

	// StreakReminderBatch caps at-risk streaks per reminder run.
	StreakReminderBatch int

	JobTimeout time.Duration
}

// EventBusConfig holds in-process event bus settings.
type EventBusConfig struct {
	// AsyncMode dispatches handlers on the worker pool; false runs
	// them inline (tests).
	AsyncMode bool

	// WorkerPoolSize bounds concurrent handler executions.
	WorkerPoolSize int
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string // debug, info, warn, error
	AddCaller bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App:           loadAppConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Catalog:       loadCatalogConfig(),
		HTTP:          loadHTTPConfig(),
		Scheduler:     loadSchedulerConfig(),
		EventBus:      loadEventBusConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func loadAppConfig() AppConfig {
	env := Environment(getEnv("APP_ENV", "development"))
	timezone := getEnv("APP_TIMEZONE", "UTC")

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}

	return AppConfig{
		Name:            getEnv("APP_NAME", "devprep-engine"),
		Environment:     env,
		Debug:           env == EnvDevelopment || getEnvBool("APP_DEBUG", false),
		Version:         getEnv("APP_VERSION", "0.1.0"),
		Timezone:        timezone,
		Location:        loc,
		ShutdownTimeout: getEnvDuration("APP_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnv("DATABASE_URL", ""),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		Database:        getEnv("DB_NAME", "devprep"),
		User:            getEnv("DB_USER", "devprep"),
		Password:        getEnv("DB_PASSWORD", ""),
		SSLMode:         getEnv("DB_SSLMODE", "require"),
		MaxConns:        getEnvInt("DB_MAX_CONNS", 10),
		MinConns:        getEnvInt("DB_MIN_CONNS", 2),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		ConnectTimeout:  getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
		RunMigrations:   getEnvBool("DB_RUN_MIGRATIONS", true),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Host:         getEnv("REDIS_HOST", "localhost"),
		Port:         getEnvInt("REDIS_PORT", 6379),
		Password:     getEnv("REDIS_PASSWORD", ""),
		DB:           getEnvInt("REDIS_DB", 0),
		PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
		MaxRetries:   getEnvInt("REDIS_MAX_RETRIES", 3),
		DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		StructureTTL: getEnvDuration("REDIS_STRUCTURE_TTL", 6*time.Hour),
	}
}

func loadCatalogConfig() CatalogConfig {
	return CatalogConfig{
		BaseURL:        getEnv("CATALOG_BASE_URL", "http://localhost:8090"),
		APIKey:         getEnv("CATALOG_API_KEY", ""),
		RequestTimeout: getEnvDuration("CATALOG_REQUEST_TIMEOUT", 10*time.Second),
		MaxRetries:     getEnvInt("CATALOG_MAX_RETRIES", 3),
	}
}

func loadHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Host:               getEnv("HTTP_HOST", "0.0.0.0"),
		Port:               getEnvInt("HTTP_PORT", 8080),
		ReadTimeout:        getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:       getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:        getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		EnableCORS:         getEnvBool("HTTP_ENABLE_CORS", true),
		AllowedOrigins:     getEnvSlice("HTTP_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitPerMinute: getEnvInt("HTTP_RATE_LIMIT_PER_MINUTE", 300),
		APIKeys:            getEnvSlice("HTTP_API_KEYS", nil),
	}
}

func loadSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:             getEnvBool("SCHEDULER_ENABLED", true),
		RollupInterval:      getEnvDuration("SCHEDULER_ROLLUP_INTERVAL", time.Hour),
		StreakReminderCron:  getEnv("SCHEDULER_STREAK_REMINDER_CRON", "0 * * * *"),
		StatsRebuildCron:    getEnv("SCHEDULER_STATS_REBUILD_CRON", "30 3 * * *"),
		StreakReminderBatch: getEnvInt("SCHEDULER_STREAK_REMINDER_BATCH", 500),
		JobTimeout:          getEnvDuration("SCHEDULER_JOB_TIMEOUT", 10*time.Minute),
	}
}

func loadEventBusConfig() EventBusConfig {
	return EventBusConfig{
		AsyncMode:      getEnvBool("EVENTBUS_ASYNC", true),
		WorkerPoolSize: getEnvInt("EVENTBUS_WORKERS", 10),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		AddCaller: getEnvBool("LOG_ADD_CALLER", true),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Environment == EnvProduction {
		if c.Database.URL == "" && c.Database.Password == "" {
			errs = append(errs, "DATABASE_URL or DB_PASSWORD is required in production")
		}
		if len(c.HTTP.APIKeys) == 0 {
			errs = append(errs, "HTTP_API_KEYS is required in production")
		}
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, "HTTP_PORT must be 1-65535")
	}

	if c.EventBus.WorkerPoolSize <= 0 {
		errs = append(errs, "EVENTBUS_WORKERS must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// --- Helper functions for environment variable parsing ---

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvSlice(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}

	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return defaultVal
	}
	return result
}
