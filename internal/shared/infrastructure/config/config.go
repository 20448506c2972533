package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/saransh1220/ev-notify/internal/shared/infrastructure/database"
)

// Config holds all configuration for the application
type Config struct {
	Server         ServerConfig
	Database       database.PostgresConfig
	Redis          RedisConfig
	JWT            JWTConfig
	Log            LogConfig
	Notification   NotificationConfig
	MigrateOnStart bool
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	AllowedOrigins string
}

// RedisConfig adds the on/off switch to the connection settings.
// Without Redis live delivery is process local and idempotency keys are ignored.
type RedisConfig struct {
	database.RedisConfig
	Enabled bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type LogConfig struct {
	Level string
}

// NotificationConfig holds delivery tuning for the notification module
type NotificationConfig struct {
	KeepAlive      time.Duration
	PullLimit      int
	EmitDelivery   string
	SessionBuffer  int
	RedisChannel   string
	IdempotencyTTL time.Duration
}

// LoadDotEnv reads a .env file from the working directory when one exists.
// Variables already present in the environment win.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Load reads configuration from environment variables
func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:4200"),
		},
		Database: database.PostgresConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "ev_notify"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			RedisConfig: database.RedisConfig{
				Host:     getEnv("REDIS_HOST", "localhost"),
				Port:     getEnv("REDIS_PORT", "6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
			},
			Enabled: parseBool(getEnv("REDIS_ENABLED", "false"), false),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-dev-secret"),
			Expiry: parseDuration(getEnv("JWT_EXPIRATION", "24h"), 24*time.Hour),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Notification: NotificationConfig{
			KeepAlive:      parseDuration(getEnv("NOTIFY_KEEPALIVE", "25s"), 25*time.Second),
			PullLimit:      parseInt(getEnv("NOTIFY_PULL_LIMIT", "50"), 50),
			EmitDelivery:   getEnv("NOTIFY_EMIT_DELIVERY", "confirm"),
			SessionBuffer:  parseInt(getEnv("NOTIFY_SESSION_BUFFER", "16"), 16),
			RedisChannel:   getEnv("NOTIFY_REDIS_CHANNEL", "ev-notify:live"),
			IdempotencyTTL: parseDuration(getEnv("NOTIFY_IDEMPOTENCY_TTL", "24h"), 24*time.Hour),
		},
		MigrateOnStart: parseBool(getEnv("MIGRATE_ON_START", "true"), true),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration string or returns a default value
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}

func parseInt(value string, defaultValue int) int {
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func parseBool(value string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}
