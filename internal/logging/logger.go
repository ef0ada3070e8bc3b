// Package logging defines the structured-logging interface shared by every
// component. Implementations wrap zerolog or log/slog.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are key-value pairs:
//
//	log.Info(ctx, "scan received", "uid", uid, "direction", dir)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}

type Options struct {
	Backend string // "zerolog" | "slog"
	Format  string // "json" | "console"
	Level   string // "debug" | "info" | "warn" | "error"
}

// New builds the process logger described by opts, writing to w.
func New(w io.Writer, opts Options) (Logger, error) {
	if w == nil {
		w = os.Stdout
	}

	switch strings.ToLower(opts.Backend) {
	case "", "zerolog":
		lvl, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil || lvl == zerolog.NoLevel {
			lvl = zerolog.InfoLevel
		}
		out := w
		if strings.EqualFold(opts.Format, "console") {
			out = zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02T15:04:05Z07:00"}
		}
		zl := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
		return NewZerologLogger(zl), nil

	case "slog":
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(opts.Level)); err != nil {
			lvl = slog.LevelInfo
		}
		hopts := &slog.HandlerOptions{Level: lvl}
		var h slog.Handler
		if strings.EqualFold(opts.Format, "console") {
			h = slog.NewTextHandler(w, hopts)
		} else {
			h = slog.NewJSONHandler(w, hopts)
		}
		return NewSlogLogger(slog.New(h)), nil

	default:
		return nil, fmt.Errorf("logging: unknown backend %q", opts.Backend)
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
