// Package logging builds the process slog.Logger from config.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/meltforce/repcircle/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup returns a logger writing to stdout, a rotating file, or both.
// The returned closer flushes and closes the log file; it is a no-op when
// logging only to stdout.
func Setup(cfg config.LogConfig) (*slog.Logger, io.Closer) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)

	if cfg.File != "" {
		filename := cfg.File
		if !strings.HasSuffix(filename, ".log") {
			filename += ".log"
		}
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 50
		}
		lj := &lumberjack.Logger{
			Filename: filename,
			MaxSize:  maxSize, // megabytes
			Compress: true,
		}
		closer = lj
		out = lj
		if cfg.Stdout {
			out = io.MultiWriter(os.Stdout, lj)
		}
	}

	return New(out, cfg.Level, cfg.Format), closer
}

// New creates a text or JSON logger on w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
