package cmd

import (
	"log/slog"

	"github.com/ttsoftware/ragline/internal/log"
)

// newLogger builds the process logger from the global flags.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: jsonLog})
}
