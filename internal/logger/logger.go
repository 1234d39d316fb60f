// Package logger configures the process-wide structured logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

var levelVar slog.LevelVar

// Init installs a text slog handler writing to w as the default logger.
// A nil writer means stderr so stdout stays free for command output.
func Init(level string, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	if err := SetLevelString(level); err != nil {
		return nil, err
	}
	l := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar}))
	slog.SetDefault(l)
	return l, nil
}

// ParseLevel converts a LOG_LEVEL value to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
}

// SetLevelString changes the level of the installed logger at runtime.
func SetLevelString(s string) error {
	level, err := ParseLevel(s)
	if err != nil {
		return err
	}
	levelVar.Set(level)
	return nil
}

// Level returns the current level.
func Level() slog.Level {
	return levelVar.Level()
}
