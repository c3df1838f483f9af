package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		LineChannelToken:  "token",
		LineChannelSecret: "secret",
		Port:              "10000",
		WebhookTimeout:    30 * time.Second,
		ReplyRateRPS:      50,
		MaxSessions:       800,
		RandomIDMin:       1,
		RandomIDMax:       200,
		SentrySampleRate:  1,
		Dataset: DatasetConfig{
			URL:              DefaultDatasetURL,
			TTL:              5 * time.Minute,
			ColumnID:         "編號",
			ColumnKeyword:    "關鍵字",
			ColumnAltKeyword: "藝人",
			ColumnImageURL:   "圖片網址",
			ColumnEpisode:    "集數資訊",
			ColumnAudioURL:   "音檔",
		},
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvLineChannelAccessToken, "test_token")
	t.Setenv(EnvLineChannelSecret, "test_secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LineChannelToken != "test_token" {
		t.Errorf("Expected token 'test_token', got '%s'", cfg.LineChannelToken)
	}
	if cfg.LineChannelSecret != "test_secret" {
		t.Errorf("Expected secret 'test_secret', got '%s'", cfg.LineChannelSecret)
	}

	// Defaults
	if cfg.Port != "10000" {
		t.Errorf("Expected default port '10000', got '%s'", cfg.Port)
	}
	if cfg.Dataset.TTL != 5*time.Minute {
		t.Errorf("Expected default dataset TTL 5m, got %v", cfg.Dataset.TTL)
	}
	if cfg.MaxSessions != 800 {
		t.Errorf("Expected default max sessions 800, got %d", cfg.MaxSessions)
	}
	if cfg.RandomIDMin != 1 || cfg.RandomIDMax != 200 {
		t.Errorf("Expected default random range 1..200, got %d..%d", cfg.RandomIDMin, cfg.RandomIDMax)
	}
	if cfg.Dataset.ColumnID != "編號" || cfg.Dataset.ColumnAudioURL != "音檔" {
		t.Errorf("Unexpected default columns: %+v", cfg.Dataset)
	}
	if cfg.Dataset.URL != DefaultDatasetURL {
		t.Errorf("Expected default dataset URL, got %s", cfg.Dataset.URL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv(EnvLineChannelAccessToken, "t")
	t.Setenv(EnvLineChannelSecret, "s")
	t.Setenv(EnvDatasetTTL, "90s")
	t.Setenv(EnvMaxSessions, "3")
	t.Setenv(EnvRandomIDMax, "0")
	t.Setenv(EnvColumnAltKeyword, "artist")
	t.Setenv(EnvR2Enabled, "not-a-bool")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Dataset.TTL != 90*time.Second {
		t.Errorf("Dataset.TTL = %v, want 90s", cfg.Dataset.TTL)
	}
	if cfg.MaxSessions != 3 {
		t.Errorf("MaxSessions = %d, want 3", cfg.MaxSessions)
	}
	if cfg.RandomRangeEnabled() {
		t.Error("RANDOM_ID_MAX=0 should disable the random range")
	}
	if cfg.Dataset.ColumnAltKeyword != "artist" {
		t.Errorf("ColumnAltKeyword = %q, want artist", cfg.Dataset.ColumnAltKeyword)
	}
	if cfg.R2.Enabled {
		t.Error("unparseable bool should fall back to default false")
	}
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv(EnvLineChannelAccessToken, "")
	t.Setenv(EnvLineChannelSecret, "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() error = nil, want error")
	}
	if !strings.Contains(err.Error(), EnvLineChannelAccessToken) || !strings.Contains(err.Error(), EnvLineChannelSecret) {
		t.Errorf("error should name both missing keys, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errContains string
	}{
		{"valid config", func(*Config) {}, false, ""},
		{"missing token", func(c *Config) { c.LineChannelToken = "" }, true, EnvLineChannelAccessToken},
		{"zero sessions", func(c *Config) { c.MaxSessions = 0 }, true, EnvMaxSessions},
		{"inverted random range", func(c *Config) { c.RandomIDMin = 300 }, true, EnvRandomIDMin},
		{"disabled random range ignores min", func(c *Config) { c.RandomIDMin = 300; c.RandomIDMax = 0 }, false, ""},
		{"negative retries", func(c *Config) { c.Dataset.MaxRetries = -1 }, true, EnvFetchMaxRetries},
		{"zero ttl", func(c *Config) { c.Dataset.TTL = 0 }, true, EnvDatasetTTL},
		{"non-http dataset url", func(c *Config) { c.Dataset.URL = "ftp://x/y.csv" }, true, EnvDatasetURL},
		{"blank required column", func(c *Config) { c.Dataset.ColumnEpisode = " " }, true, EnvColumnEpisode},
		{"blank audio column allowed", func(c *Config) { c.Dataset.ColumnAudioURL = "" }, false, ""},
		{"negative reply rate", func(c *Config) { c.ReplyRateRPS = -1 }, true, EnvReplyRateRPS},
		{"metrics password without username", func(c *Config) { c.MetricsPassword = "x"; c.MetricsUsername = "" }, true, EnvMetricsUsername},
		{"sample rate out of range", func(c *Config) { c.SentrySampleRate = 1.5 }, true, EnvSentrySampleRate},
		{
			name: "r2 without credentials",
			mutate: func(c *Config) {
				c.R2 = R2Config{Enabled: true, DatasetKey: "dataset.csv"}
			},
			wantErr:     true,
			errContains: EnvR2BucketName,
		},
		{
			name: "r2 source does not need dataset url",
			mutate: func(c *Config) {
				c.Dataset.URL = ""
				c.R2 = R2Config{
					Enabled:         true,
					AccountID:       "acc",
					AccessKeyID:     "key",
					SecretAccessKey: "secret",
					BucketName:      "bucket",
					DatasetKey:      "dataset.csv.zst",
				}
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.errContains)
			}
		})
	}
}
