package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, populated from environment
// variables (optionally a .env file).
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Sync     SyncConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// SyncConfig holds the upstream endpoints and schedule for the daily sync.
// BaseURL serves the HTML index of station-status CSVs; FaultReportURL serves
// the date-stamped folders of fault-detail CSVs.
type SyncConfig struct {
	BaseURL        string
	FaultReportURL string
	RequestTimeout time.Duration
	Hour           int
	Minute         int
	Timezone       string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string
}

// LoadConfig reads configuration from the environment, applying defaults
// where unset. Upstream endpoint URLs have no defaults; Validate rejects a
// config without them.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Server: ServerConfig{
			Host:         envOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:         envInt("SERVER_PORT", 8080),
			ReadTimeout:  envDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: envDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  envDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:            envOrDefault("DB_HOST", "localhost"),
			Port:            envInt("DB_PORT", 5432),
			User:            envOrDefault("DB_USER", "postgres"),
			Password:        envOrDefault("DB_PASSWORD", "postgres"),
			Database:        envOrDefault("DB_NAME", "station_platform"),
			SSLMode:         envOrDefault("DB_SSLMODE", "disable"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: envDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Sync: SyncConfig{
			BaseURL:        strings.TrimSpace(os.Getenv("BASE_URL")),
			FaultReportURL: strings.TrimSpace(os.Getenv("FS_REPORT_URL")),
			RequestTimeout: envDuration("SYNC_REQUEST_TIMEOUT", 20*time.Second),
			Hour:           envInt("SYNC_HOUR", 11),
			Minute:         envInt("SYNC_MINUTE", 0),
			Timezone:       envOrDefault("SYNC_TIMEZONE", "Asia/Kolkata"),
		},
		Logging: LoggingConfig{
			Level: envOrDefault("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// Validate checks configuration invariants that should stop startup.
func (c *Config) Validate() error {
	if c.Sync.BaseURL == "" {
		return errors.New("BASE_URL is required")
	}
	if c.Sync.FaultReportURL == "" {
		return errors.New("FS_REPORT_URL is required")
	}
	if c.Sync.Hour < 0 || c.Sync.Hour > 23 {
		return fmt.Errorf("SYNC_HOUR out of range: %d", c.Sync.Hour)
	}
	if c.Sync.Minute < 0 || c.Sync.Minute > 59 {
		return fmt.Errorf("SYNC_MINUTE out of range: %d", c.Sync.Minute)
	}
	if _, err := time.LoadLocation(c.Sync.Timezone); err != nil {
		return fmt.Errorf("invalid SYNC_TIMEZONE: %w", err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT out of range: %d", c.Server.Port)
	}
	if c.Database.Host == "" || c.Database.Database == "" {
		return errors.New("database host and name are required")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
