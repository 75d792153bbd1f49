package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "devprep-engine", cfg.App.Name)
	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "UTC", cfg.App.Timezone)

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "devprep", cfg.Database.Database)
	assert.True(t, cfg.Database.RunMigrations)

	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 6*time.Hour, cfg.Redis.StructureTTL)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Empty(t, cfg.HTTP.APIKeys)

	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "0 * * * *", cfg.Scheduler.StreakReminderCron)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("HTTP_API_KEYS", "key-a, key-b")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("APP_SHUTDOWN_TIMEOUT", "45s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.HTTP.APIKeys)
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 45*time.Second, cfg.App.ShutdownTimeout)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("APP_SHUTDOWN_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 30*time.Second, cfg.App.ShutdownTimeout)
}

func TestValidate_ProductionRequiresCredentials(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL or DB_PASSWORD")
	assert.Contains(t, err.Error(), "HTTP_API_KEYS")
}

func TestValidate_ProductionWithCredentials(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://engine:secret@db:5432/devprep")
	t.Setenv("HTTP_API_KEYS", "prod-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestValidate_RejectsBadPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_PORT")
}
