package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), "level %q", tt.in)
	}
}

func TestSetupLoggerHonorsLevel(t *testing.T) {
	ctx := context.Background()

	logger := setupLogger("warn", "text")
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))

	logger = setupLogger("nonsense", "json")
	assert.True(t, logger.Enabled(ctx, slog.LevelInfo), "unknown level falls back to info")
}
