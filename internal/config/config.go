package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Upload    UploadConfig
	Notify    NotifyConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type AuthConfig struct {
	JWTSecret          string
	SessionTokenExpiry time.Duration
	CleanupInterval    time.Duration
}

// SecurityConfig governs the PIN lockout state machine. Read-only after load.
type SecurityConfig struct {
	MaxAttempts   int
	LockDuration  time.Duration
	AttemptWindow time.Duration
	// Retention multiplier for ledger rows, relative to the attempt window.
	AttemptRetention time.Duration
	PersistAuditLog  bool
}

// RateLimitConfig governs the in-memory fixed-window limiter.
type RateLimitConfig struct {
	AnalysisPerHour       int
	BatchAnalysisPerHour  int
	FailedAttemptsPerHour int
	SweepInterval         time.Duration
}

// UploadConfig governs the file validation pipeline.
type UploadConfig struct {
	MaxFileSize  int64
	MaxBatchSize int
}

type NotifyConfig struct {
	Enabled          bool
	AWSRegion        string
	FromAddress      string
	CoordinatorEmail string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "stajportal"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			Env:      env,
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:          jwtSecret,
			SessionTokenExpiry: getEnvAsDuration("SESSION_TOKEN_EXPIRY", 8*time.Hour),
			CleanupInterval:    getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
		},
		Security: SecurityConfig{
			MaxAttempts:      getEnvAsInt("PIN_MAX_ATTEMPTS", 4),
			LockDuration:     getEnvAsDuration("PIN_LOCK_DURATION", 30*time.Minute),
			AttemptWindow:    getEnvAsDuration("PIN_ATTEMPT_WINDOW", 15*time.Minute),
			AttemptRetention: getEnvAsDuration("PIN_ATTEMPT_RETENTION", 24*time.Hour),
			PersistAuditLog:  getEnvAsBool("AUDIT_PERSIST", true),
		},
		RateLimit: RateLimitConfig{
			AnalysisPerHour:       getEnvAsInt("ANALYSIS_PER_HOUR", 50),
			BatchAnalysisPerHour:  getEnvAsInt("BATCH_ANALYSIS_PER_HOUR", 10),
			FailedAttemptsPerHour: getEnvAsInt("FAILED_ATTEMPTS_PER_HOUR", 20),
			SweepInterval:         getEnvAsDuration("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
		},
		Upload: UploadConfig{
			MaxFileSize:  getEnvAsInt64("MAX_FILE_SIZE", 10*1024*1024),
			MaxBatchSize: getEnvAsInt("MAX_BATCH_SIZE", 20),
		},
		Notify: NotifyConfig{
			Enabled:          getEnvAsBool("NOTIFY_ENABLED", false),
			AWSRegion:        getEnv("AWS_REGION", "eu-central-1"),
			FromAddress:      getEnv("NOTIFY_FROM_ADDRESS", ""),
			CoordinatorEmail: getEnv("NOTIFY_COORDINATOR_EMAIL", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.Security.MaxAttempts < 1 {
		return nil, fmt.Errorf("PIN_MAX_ATTEMPTS must be at least 1")
	}

	if cfg.Notify.Enabled && (cfg.Notify.FromAddress == "" || cfg.Notify.CoordinatorEmail == "") {
		return nil, fmt.Errorf("NOTIFY_FROM_ADDRESS and NOTIFY_COORDINATOR_EMAIL are required when NOTIFY_ENABLED is set")
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for the JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
