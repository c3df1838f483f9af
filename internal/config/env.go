// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Core (Required)
	EnvLineChannelAccessToken = "LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "LINE_CHANNEL_SECRET"

	// Server
	EnvPort            = "PORT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
	EnvWebhookTimeout  = "WEBHOOK_TIMEOUT"
	EnvReplyRateRPS    = "REPLY_RATE_RPS"

	// Dataset
	EnvDatasetURL        = "DATASET_URL"
	EnvDatasetTTL        = "DATASET_TTL"
	EnvFetchMaxRetries   = "FETCH_MAX_RETRIES"
	EnvColumnID          = "DATASET_COLUMN_ID"
	EnvColumnKeyword     = "DATASET_COLUMN_KEYWORD"
	EnvColumnAltKeyword  = "DATASET_COLUMN_ALT_KEYWORD"
	EnvColumnImageURL    = "DATASET_COLUMN_IMAGE_URL"
	EnvColumnEpisode     = "DATASET_COLUMN_EPISODE"
	EnvColumnAudioURL    = "DATASET_COLUMN_AUDIO_URL"
	EnvMetricsJobPeriod  = "METRICS_UPDATE_INTERVAL"
	EnvWarmupWaitTimeout = "WARMUP_WAIT"

	// Search / Sessions
	EnvMaxSessions = "MAX_SESSIONS"
	EnvRandomIDMin = "RANDOM_ID_MIN"
	EnvRandomIDMax = "RANDOM_ID_MAX"

	// R2 Dataset Source
	EnvR2Enabled         = "R2_ENABLED"
	EnvR2AccountID       = "R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "R2_BUCKET_NAME"
	EnvR2DatasetKey      = "R2_DATASET_KEY"

	// Sentry Feature
	EnvSentryDSN         = "SENTRY_DSN"
	EnvSentryEnvironment = "SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackToken = "BETTERSTACK_TOKEN"

	// Metrics Auth Feature
	EnvMetricsUsername = "METRICS_USERNAME"
	EnvMetricsPassword = "METRICS_PASSWORD"
)
