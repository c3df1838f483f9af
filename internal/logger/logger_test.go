package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/garyellow/picfinder-linebot-go/internal/ctxutil"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log %q: %v", buf.String(), err)
	}
	return entry
}

func TestNewWithWriter_Levels(t *testing.T) {
	t.Parallel()
	tests := []struct {
		level     string
		logDebug  bool
		logInfo   bool
		logWarn   bool
		wantLevel slog.Level
	}{
		{"debug", true, true, true, slog.LevelDebug},
		{"info", false, true, true, slog.LevelInfo},
		{"warn", false, false, true, slog.LevelWarn},
		{"error", false, false, false, slog.LevelError},
		{"bogus", false, true, true, slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			log := NewWithWriter(tt.level, &buf)
			ctx := context.Background()

			if got := log.Enabled(ctx, slog.LevelDebug); got != tt.logDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.logDebug)
			}
			if got := log.Enabled(ctx, slog.LevelInfo); got != tt.logInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.logInfo)
			}
			if got := log.Enabled(ctx, slog.LevelWarn); got != tt.logWarn {
				t.Errorf("warn enabled = %v, want %v", got, tt.logWarn)
			}
			if log.GetLevel() != tt.wantLevel {
				t.Errorf("GetLevel() = %v, want %v", log.GetLevel(), tt.wantLevel)
			}
		})
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info("test message")

	entry := decodeEntry(t, &buf)
	for _, field := range []string{"timestamp", "level", "message"} {
		if _, ok := entry[field]; !ok {
			t.Errorf("JSON log missing required field %q", field)
		}
	}
	if entry["message"] != "test message" {
		t.Errorf("message = %v, want %q", entry["message"], "test message")
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want %q", entry["level"], "info")
	}
}

func TestLogger_WarnLevelName(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	NewWithWriter("info", &buf).Warn("careful")

	if entry := decodeEntry(t, &buf); entry["level"] != "warning" {
		t.Errorf("level = %v, want warning", entry["level"])
	}
}

func TestLogger_Fields(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		build func(*Logger) *Logger
		key   string
		want  any
	}{
		{"module", func(l *Logger) *Logger { return l.WithModule("search") }, "module", "search"},
		{"request id", func(l *Logger) *Logger { return l.WithRequestID("req-123") }, "request_id", "req-123"},
		{"error", func(l *Logger) *Logger { return l.WithError(errors.New("boom")) }, "error", "boom"},
		{"field", func(l *Logger) *Logger { return l.WithField("rows", 42) }, "rows", float64(42)},
		{"fields", func(l *Logger) *Logger { return l.WithFields(map[string]any{"mode": "alternate"}) }, "mode", "alternate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			tt.build(NewWithWriter("info", &buf)).Info("test message")

			entry := decodeEntry(t, &buf)
			if entry[tt.key] != tt.want {
				t.Errorf("%s = %v, want %v", tt.key, entry[tt.key], tt.want)
			}
		})
	}
}

func TestLogger_ContextValues(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	ctx := ctxutil.WithSessionID(context.Background(), "U42")
	ctx = ctxutil.WithRequestID(ctx, "req-ctx")
	log.InfoContext(ctx, "handled")

	entry := decodeEntry(t, &buf)
	if entry["session_id"] != "U42" {
		t.Errorf("session_id = %v, want U42", entry["session_id"])
	}
	if entry["request_id"] != "req-ctx" {
		t.Errorf("request_id = %v, want req-ctx", entry["request_id"])
	}
}

func TestLogger_SetLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)
	child := log.WithModule("bot")

	if err := log.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel(debug) error = %v, want nil", err)
	}
	if log.GetLevel() != slog.LevelDebug {
		t.Errorf("GetLevel() = %v, want debug", log.GetLevel())
	}
	if !child.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("derived logger should follow level changes")
	}
	if err := log.SetLevel("invalid"); err == nil {
		t.Error("SetLevel(invalid) error = nil, want error")
	}
}

func TestLogger_ShutdownWithoutRemote(t *testing.T) {
	t.Parallel()
	log := NewWithWriter("info", &bytes.Buffer{})
	if err := log.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v, want nil", err)
	}
	if log.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", log.Dropped())
	}
}
