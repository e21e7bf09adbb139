package main

import (
	"log/slog"
	"os"
)

// newLogger builds the process-wide slog.Logger, matching the
// teacher's flag-controlled verbosity but with structured text output
// instead of ad hoc Printf statements.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
