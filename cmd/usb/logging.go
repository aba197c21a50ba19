package main

import (
	"log/slog"
	"os"
	"strings"
)

// parseLevel maps a level word from the config file or CLI to a
// slog.Level. Unknown words fall back to info so a typo never silences
// the board.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogger(level, format string) *slog.Logger {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		// Source locations only earn their noise when tracing the
		// parse pipeline at debug level.
		AddSource: lvl == slog.LevelDebug,
	}

	// The board is usually watched from a terminal, so text is the
	// default and json the opt-in.
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		"service", appName,
		"version", Version,
		"pid", os.Getpid(),
	)
}
