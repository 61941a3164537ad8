package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "a-sufficiently-long-test-secret")
	t.Setenv("DB_PASSWORD", "postgres")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Security.MaxAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Security.LockDuration)
	assert.Equal(t, 15*time.Minute, cfg.Security.AttemptWindow)
	assert.Equal(t, 24*time.Hour, cfg.Security.AttemptRetention)
	assert.True(t, cfg.Security.PersistAuditLog)

	assert.Equal(t, 50, cfg.RateLimit.AnalysisPerHour)
	assert.Equal(t, 10, cfg.RateLimit.BatchAnalysisPerHour)
	assert.Equal(t, 20, cfg.RateLimit.FailedAttemptsPerHour)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.SweepInterval)

	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxFileSize)
	assert.Equal(t, 20, cfg.Upload.MaxBatchSize)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 8*time.Hour, cfg.Auth.SessionTokenExpiry)
	assert.False(t, cfg.Notify.Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PIN_MAX_ATTEMPTS", "6")
	t.Setenv("PIN_LOCK_DURATION", "1h")
	t.Setenv("PIN_ATTEMPT_WINDOW", "10m")
	t.Setenv("MAX_FILE_SIZE", "5242880")
	t.Setenv("AUDIT_PERSIST", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Security.MaxAttempts)
	assert.Equal(t, time.Hour, cfg.Security.LockDuration)
	assert.Equal(t, 10*time.Minute, cfg.Security.AttemptWindow)
	assert.Equal(t, int64(5242880), cfg.Upload.MaxFileSize)
	assert.False(t, cfg.Security.PersistAuditLog)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_PASSWORD", "postgres")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_RequiresDBPassword(t *testing.T) {
	t.Setenv("JWT_SECRET", "a-sufficiently-long-test-secret")
	t.Setenv("DB_PASSWORD", "")

	_, err := Load()
	assert.ErrorContains(t, err, "DB_PASSWORD")
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("DB_PASSWORD", "postgres")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET must be at least")
}

func TestLoad_ProductionSecretLength(t *testing.T) {
	t.Setenv("JWT_SECRET", "only-twenty-chars-xx")
	t.Setenv("DB_PASSWORD", "postgres")
	t.Setenv("ENV", "production")

	_, err := Load()
	assert.ErrorContains(t, err, "32 characters")
}

func TestLoad_RejectsZeroMaxAttempts(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PIN_MAX_ATTEMPTS", "0")

	_, err := Load()
	assert.ErrorContains(t, err, "PIN_MAX_ATTEMPTS")
}

func TestLoad_NotifyRequiresAddresses(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NOTIFY_ENABLED", "true")

	_, err := Load()
	assert.ErrorContains(t, err, "NOTIFY_FROM_ADDRESS")
}

func TestValidateJWTSecret_RejectsWeakValues(t *testing.T) {
	err := validateJWTSecret("changeme", "development")
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "postgres",
		Password: "pw", Name: "stajportal", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=pw dbname=stajportal sslmode=disable",
		db.DSN())
}
