// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// the server, the dataset source, the session store and the optional integrations.
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

// DefaultDatasetURL is the published CSV export of the lookup sheet.
const DefaultDatasetURL = "https://docs.google.com/spreadsheets/d/1FoDBb7Vk8OwoaIrAD31y5hA48KPBN91yTMRnuVMHktQ/export?format=csv"

// Config holds all application configuration
type Config struct {
	// LINE Bot Configuration
	LineChannelToken  string
	LineChannelSecret string

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	WebhookTimeout  time.Duration
	ReplyRateRPS    float64 // Global reply rate in messages per second (0 = unlimited)

	// Metrics Authentication
	MetricsUsername string // Username for /metrics endpoint Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics endpoint Basic Auth (empty = no auth)

	// Dataset Configuration
	Dataset DatasetConfig

	// Session / Search Configuration
	MaxSessions int // Session store capacity (default: 800)
	RandomIDMin int // Lowest ID eligible for random pick (default: 1)
	RandomIDMax int // Highest ID eligible for random pick (default: 200, 0 = no range)

	// Background jobs
	MetricsUpdateInterval time.Duration
	WarmupWait            time.Duration

	// R2 Dataset Source (optional)
	R2 R2Config

	// Observability integrations
	SentryDSN         string
	SentryEnvironment string
	SentrySampleRate  float64
	BetterstackToken  string
}

// DatasetConfig describes where the lookup table lives and how to read it.
type DatasetConfig struct {
	URL        string
	TTL        time.Duration // Snapshot freshness window (default: 5m)
	MaxRetries int           // Extra fetch attempts after the first (default: 0)

	ColumnID         string
	ColumnKeyword    string
	ColumnAltKeyword string
	ColumnImageURL   string
	ColumnEpisode    string
	ColumnAudioURL   string
}

// R2Config holds Cloudflare R2 credentials for reading the dataset from object storage.
type R2Config struct {
	Enabled         bool
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	DatasetKey      string
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),

		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		WebhookTimeout:  getDurationEnv(EnvWebhookTimeout, WebhookProcessing),
		ReplyRateRPS:    getFloatEnv(EnvReplyRateRPS, 50),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),

		Dataset: DatasetConfig{
			URL:              getEnv(EnvDatasetURL, DefaultDatasetURL),
			TTL:              getDurationEnv(EnvDatasetTTL, 5*time.Minute),
			MaxRetries:       getIntEnv(EnvFetchMaxRetries, 0),
			ColumnID:         getEnv(EnvColumnID, "編號"),
			ColumnKeyword:    getEnv(EnvColumnKeyword, "關鍵字"),
			ColumnAltKeyword: getEnv(EnvColumnAltKeyword, "藝人"),
			ColumnImageURL:   getEnv(EnvColumnImageURL, "圖片網址"),
			ColumnEpisode:    getEnv(EnvColumnEpisode, "集數資訊"),
			ColumnAudioURL:   getEnv(EnvColumnAudioURL, "音檔"),
		},

		MaxSessions: getIntEnv(EnvMaxSessions, 800),
		RandomIDMin: getIntEnv(EnvRandomIDMin, 1),
		RandomIDMax: getIntEnv(EnvRandomIDMax, 200),

		MetricsUpdateInterval: getDurationEnv(EnvMetricsJobPeriod, MetricsUpdateInterval),
		WarmupWait:            getDurationEnv(EnvWarmupWaitTimeout, WarmupWait),

		R2: R2Config{
			Enabled:         getBoolEnv(EnvR2Enabled, false),
			AccountID:       getEnv(EnvR2AccountID, ""),
			AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
			SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
			BucketName:      getEnv(EnvR2BucketName, ""),
			DatasetKey:      getEnv(EnvR2DatasetKey, "dataset.csv"),
		},

		SentryDSN:         getEnv(EnvSentryDSN, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),
		BetterstackToken:  getEnv(EnvBetterStackToken, ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.LineChannelToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvLineChannelAccessToken))
	}
	if c.LineChannelSecret == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvLineChannelSecret))
	}
	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if c.WebhookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvWebhookTimeout, c.WebhookTimeout))
	}
	if c.ReplyRateRPS < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %v", EnvReplyRateRPS, c.ReplyRateRPS))
	}
	if c.MetricsPassword != "" && c.MetricsUsername == "" {
		errs = append(errs, fmt.Errorf("%s is required when %s is set", EnvMetricsUsername, EnvMetricsPassword))
	}
	if c.MaxSessions <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvMaxSessions, c.MaxSessions))
	}
	if c.RandomIDMax != 0 && c.RandomIDMin > c.RandomIDMax {
		errs = append(errs, fmt.Errorf("%s (%d) exceeds %s (%d)", EnvRandomIDMin, c.RandomIDMin, EnvRandomIDMax, c.RandomIDMax))
	}
	if err := c.Dataset.Validate(c.R2.Enabled); err != nil {
		errs = append(errs, fmt.Errorf("dataset config: %w", err))
	}
	if c.R2.Enabled {
		if err := c.R2.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("r2 config: %w", err))
		}
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", EnvSentrySampleRate, c.SentrySampleRate))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the dataset source and column headers.
// The URL is only required when the dataset is not read from R2.
func (d DatasetConfig) Validate(fromR2 bool) error {
	var errs []error

	if !fromR2 {
		if d.URL == "" {
			errs = append(errs, fmt.Errorf("%s is required", EnvDatasetURL))
		} else if !strings.HasPrefix(d.URL, "http://") && !strings.HasPrefix(d.URL, "https://") {
			errs = append(errs, fmt.Errorf("%s must be an http(s) URL, got %q", EnvDatasetURL, d.URL))
		}
	}
	if d.TTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvDatasetTTL, d.TTL))
	}
	if d.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvFetchMaxRetries, d.MaxRetries))
	}

	required := map[string]string{
		EnvColumnID:         d.ColumnID,
		EnvColumnKeyword:    d.ColumnKeyword,
		EnvColumnAltKeyword: d.ColumnAltKeyword,
		EnvColumnImageURL:   d.ColumnImageURL,
		EnvColumnEpisode:    d.ColumnEpisode,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s cannot be empty", key))
		}
	}

	return errors.Join(errs...)
}

// Validate checks that all R2 credentials are present.
func (r R2Config) Validate() error {
	var errs []error
	if r.AccountID == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvR2AccountID))
	}
	if r.AccessKeyID == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvR2AccessKeyID))
	}
	if r.SecretAccessKey == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvR2SecretAccessKey))
	}
	if r.BucketName == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvR2BucketName))
	}
	if r.DatasetKey == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvR2DatasetKey))
	}
	return errors.Join(errs...)
}

// RandomRangeEnabled reports whether random pick is restricted to an ID range.
func (c *Config) RandomRangeEnabled() bool {
	return c.RandomIDMax > 0
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
