package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"network-monitor/src/config"
)

// -----------------------------------------------------------------------------

// LevelCritical sits above slog.LevelError so critical lines can be filtered on.
const LevelCritical = slog.LevelError + 4

// -----------------------------------------------------------------------------

// Logger is the printf-style levelled logger shared by every component.
// Messages follow the "<component> : <message>" convention.
type Logger struct {
	name string
	sl   *slog.Logger
}

// -----------------------------------------------------------------------------

// NewLogger builds the application logger from the log section of the config.
func NewLogger(cfg *config.Config, name string) *Logger {
	level, format := "info", "text"
	if cfg != nil && cfg.MConfig != nil {
		if cfg.Log.Level != "" {
			level = cfg.Log.Level
		}
		if cfg.Log.Format != "" {
			format = cfg.Log.Format
		}
	}
	return New(os.Stderr, level, format, name)
}

// -----------------------------------------------------------------------------

// New creates a Logger writing to w.
func New(w io.Writer, level, format, name string) *Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelCritical {
					a.Value = slog.StringValue("CRITICAL")
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	sl := slog.New(handler)
	if name != "" {
		sl = sl.With(slog.String("app", name))
	}
	return &Logger{name: name, sl: sl}
}

// -----------------------------------------------------------------------------

// NewNopLogger discards everything. Used by tests.
func NewNopLogger() *Logger {
	return &Logger{sl: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// -----------------------------------------------------------------------------

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical":
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}

// -----------------------------------------------------------------------------

// Name returns the application name the logger was built with
func (l *Logger) Name() string {
	return l.name
}

// -----------------------------------------------------------------------------

// Slog exposes the underlying structured logger.
func (l *Logger) Slog() *slog.Logger {
	return l.sl
}

// -----------------------------------------------------------------------------

func (l *Logger) Debug(format string, args ...any) {
	l.log(slog.LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.log(slog.LevelInfo, format, args...)
}

func (l *Logger) Warning(format string, args ...any) {
	l.log(slog.LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(slog.LevelError, format, args...)
}

func (l *Logger) Critical(format string, args ...any) {
	l.log(LevelCritical, format, args...)
}

// -----------------------------------------------------------------------------

func (l *Logger) log(level slog.Level, format string, args ...any) {
	ctx := context.Background()
	if !l.sl.Enabled(ctx, level) {
		return
	}
	l.sl.Log(ctx, level, fmt.Sprintf(format, args...))
}
