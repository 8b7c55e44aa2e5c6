package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

func main() {
	if err := newRootCmd(newLogger()).Execute(); err != nil {
		// The root command has already printed its usage line.
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// newLogger writes JSON logs to stderr so stdout only carries results.
// The level comes from ECI_LOG_LEVEL (debug, info, warn, error).
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("ECI_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
