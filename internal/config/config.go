// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir       string // Base directory for the results database and backup staging
	LogLevel      string
	Port          int
	DevMode       bool
	SweepSchedule string // Cron schedule for the periodic benchmark sweep
	SweepDims     []int  // Operator dimensions covered by the sweep
	SweepDensity  float64
	SweepIters    int
	RetentionDays int // Benchmark runs older than this are pruned; 0 keeps everything
	Backup        *BackupConfig
}

// BackupConfig holds S3-compatible backup configuration.
// Backups are disabled when Bucket or credentials are empty.
type BackupConfig struct {
	Enabled       bool
	Bucket        string
	Endpoint      string // Custom endpoint for R2/minio; empty for AWS S3
	Region        string
	AccessKey     string
	SecretKey     string
	Schedule      string // Cron schedule for the backup job
	RetentionDays int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory, default to ./data, always resolved to an
	// absolute path so relative working directories cannot split state.
	dataDir := getEnv("QBENCH_DATA_DIR", "")
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
		DataDir:       absDataDir,
		Port:          getEnvAsInt("QBENCH_PORT", 8010),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		SweepSchedule: getEnv("SWEEP_SCHEDULE", "@hourly"),
		SweepDims:     getEnvAsInts("SWEEP_DIMS", []int{10, 50, 100}),
		SweepDensity:  getEnvAsFloat("SWEEP_DENSITY", 0.1),
		SweepIters:    getEnvAsInt("SWEEP_ITERATIONS", 200),
		RetentionDays: getEnvAsInt("RESULTS_RETENTION_DAYS", 90),
		Backup:        loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.SweepDensity <= 0 || c.SweepDensity > 1 {
		return fmt.Errorf("SWEEP_DENSITY must be in (0, 1], got %v", c.SweepDensity)
	}
	if c.SweepIters <= 0 {
		return fmt.Errorf("SWEEP_ITERATIONS must be positive, got %d", c.SweepIters)
	}
	for _, d := range c.SweepDims {
		if d <= 0 {
			return fmt.Errorf("SWEEP_DIMS entries must be positive, got %d", d)
		}
	}
	return nil
}

// loadBackupConfig loads backup configuration from environment variables.
// The job stays registered but does nothing when disabled.
func loadBackupConfig() *BackupConfig {
	cfg := &BackupConfig{
		Bucket:        getEnv("BACKUP_S3_BUCKET", ""),
		Endpoint:      getEnv("BACKUP_S3_ENDPOINT", ""),
		Region:        getEnv("BACKUP_S3_REGION", "auto"),
		AccessKey:     getEnv("BACKUP_S3_ACCESS_KEY", ""),
		SecretKey:     getEnv("BACKUP_S3_SECRET_KEY", ""),
		Schedule:      getEnv("BACKUP_SCHEDULE", "@daily"),
		RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
	}
	cfg.Enabled = cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != ""
	return cfg
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvAsInts parses a comma-separated list of integers (e.g. "10,50,100").
// Invalid entries cause the default to be returned wholesale.
func getEnvAsInts(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		intVal, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return defaultValue
		}
		out = append(out, intVal)
	}
	return out
}
