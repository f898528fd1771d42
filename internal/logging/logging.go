package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup builds the process logger, installs it as the slog default, and
// returns it. level is one of "debug", "info", "warn", "error"; anything
// else (including empty) means info.
func Setup(level string) *slog.Logger {
	var lvl slog.LevelVar
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: &lvl,
	}))
	slog.SetDefault(logger)
	return logger
}
