// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Forecast defaults
	DefaultHorizon int // forecast quarters per run when the request omits it

	// Base URL of the published reference-rate feed for daily fixings.
	// Empty disables remote syncing; the rate path then runs on the
	// assumption set's base yield and scheduled events alone.
	RateFeedURL string

	// RunRetentionDays is how long failed runs stay in results.db before
	// the retention job removes them. Completed runs are kept forever.
	RunRetentionDays int

	Scheduler *SchedulerConfig
	Archive   *ArchiveConfig
}

// SchedulerConfig holds background job configuration. Schedules are cron
// expressions with a seconds field.
type SchedulerConfig struct {
	Enabled             bool
	FixingsSchedule     string
	CalibrationSchedule string
	MaintenanceSchedule string
	ArchiveSchedule     string
}

// ArchiveConfig holds Cloudflare R2 (S3-compatible) archive settings.
// Archiving is disabled unless all credentials are present.
type ArchiveConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	RetentionDays   int
}

// Configured reports whether all archive credentials are present.
func (a *ArchiveConfig) Configured() bool {
	return a.AccountID != "" && a.AccessKeyID != "" &&
		a.SecretAccessKey != "" && a.BucketName != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic
	// 1. Check FORESIGHT_DATA_DIR environment variable
	// 2. If not set, default to ./data
	// 3. Always resolve to absolute path
	// 4. Ensure directory exists
	dataDir := getEnv("FORESIGHT_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		Port:           getEnvAsInt("GO_PORT", 8001),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DefaultHorizon: getEnvAsInt("FORECAST_HORIZON", 4),
		RateFeedURL:    getEnv("RATEFEED_URL", ""),

		RunRetentionDays: getEnvAsInt("RUN_RETENTION_DAYS", 30),
		Scheduler: &SchedulerConfig{
			Enabled: getEnvAsBool("SCHEDULER_ENABLED", true),
			// 02:15 daily: pull the latest benchmark fixings before the sweep
			FixingsSchedule: getEnv("FIXINGS_SCHEDULE", "0 15 2 * * *"),
			// 02:30 daily: score completed quarters against reported actuals
			CalibrationSchedule: getEnv("CALIBRATION_SCHEDULE", "0 30 2 * * *"),
			// 03:00 Sunday: WAL checkpoints, cache pruning, vacuum
			MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "0 0 3 * * 0"),
			// 04:00 daily: upload run ledger archive
			ArchiveSchedule: getEnv("ARCHIVE_SCHEDULE", "0 0 4 * * *"),
		},
		Archive: &ArchiveConfig{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", ""),
			RetentionDays:   getEnvAsInt("R2_RETENTION_DAYS", 90),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DefaultHorizon < 1 {
		return fmt.Errorf("forecast horizon must be at least 1, got %d", c.DefaultHorizon)
	}
	if c.RunRetentionDays < 1 {
		return fmt.Errorf("run retention must be at least 1 day, got %d", c.RunRetentionDays)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
