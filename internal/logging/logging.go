// Package logging builds the portal's structured JSON logger.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New returns a JSON logger writing to stderr and, when logFile is set,
// appending to that file. The logger becomes the slog default. The cleanup
// func closes the log file and must be deferred by the caller.
func New(level, logFile string) (*slog.Logger, func(), error) {
	lvl := parseLevel(level)

	var w io.Writer = os.Stderr
	cleanup := func() {}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, err
		}
		w = io.MultiWriter(os.Stderr, f)
		cleanup = func() { _ = f.Close() }
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	})
	logger := slog.New(handler).With("app", "examportal")
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

// parseLevel accepts slog level names in any case ("debug", "WARN",
// "info+2"). Anything else is info.
func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
