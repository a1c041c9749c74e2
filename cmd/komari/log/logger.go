package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var logFileHandler *os.File

func FlushLog() {
	if logFileHandler != nil {
		logFileHandler.Sync()
	}
}

func FlushAndClose() error {
	if logFileHandler != nil {
		logFileHandler.Sync()
		err := logFileHandler.Close()
		logFileHandler = nil
		return err
	}

	return nil
}

// ParseLevel maps "debug", "info", "warn" or "error" to a level. Anything else falls back to
// the debug flag.
func ParseLevel(logLevel string, debug bool) slog.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewLoggerWithLevel creates a logger writing to stdout and to a new file in logDir named
// after the agent.
func NewLoggerWithLevel(logLevel string, debug bool, logDir, name string) (*slog.Logger, error) {
	if logDir == "" {
		logDir = "logs"
	}

	if _, err := os.Stat(logDir); errors.Is(err, os.ErrNotExist) {
		err := os.MkdirAll(logDir, os.ModePerm)
		if err != nil {
			return nil, fmt.Errorf("error creating log directory: %w", err)
		}
	}

	if name == "" {
		name = "komari"
	}
	fileName := fmt.Sprintf("%s-log-%s.txt", name, time.Now().Format("2006-01-02-15-04-05"))

	lfh, err := os.Create(filepath.Join(logDir, fileName))
	if err != nil {
		return nil, err
	}
	logFileHandler = lfh

	return newLogger(io.MultiWriter(logFileHandler, os.Stdout), ParseLevel(logLevel, debug)), nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key != slog.TimeKey {
				return a
			}

			t := a.Value.Time()
			a.Value = slog.StringValue(t.Format(time.TimeOnly))

			return a
		},
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
