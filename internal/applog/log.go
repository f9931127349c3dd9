// Package applog wires the supervisor's structured logging: a colored
// terminal handler for interactive use and a rotating JSON file handler for
// logs/app.log, fanned out through a single slog.Handler, in the same spirit
// as go-ethereum's own glog+rotation setup.
package applog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the app-wide logger.
type Options struct {
	// AppLogPath is the rotating JSON log destination, e.g. <root>/logs/app.log.
	AppLogPath string
	// Verbosity is a go-ethereum log.Level (log.LevelTrace..log.LevelCrit).
	Verbosity slog.Level
	// Color forces/disables ANSI color on the terminal handler. nil autodetects.
	Color *bool
}

// Setup installs the process-wide default logger and returns it, along with
// a closer that must run on shutdown to flush the rotating writer.
func Setup(opts Options) (log.Logger, func() error, error) {
	if opts.AppLogPath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.AppLogPath), 0o755); err != nil {
			return nil, nil, err
		}
	}

	useColor := term.IsTerminal(int(os.Stderr.Fd()))
	if opts.Color != nil {
		useColor = *opts.Color
	}
	level := opts.Verbosity
	if level == 0 {
		level = log.LevelInfo
	}
	term := log.NewTerminalHandlerWithLevel(os.Stderr, level, useColor)

	var rotator *lumberjack.Logger
	var handler slog.Handler = term
	if opts.AppLogPath != "" {
		rotator = &lumberjack.Logger{
			Filename:   opts.AppLogPath,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		handler = &fanoutHandler{handlers: []slog.Handler{term, log.JSONHandler(rotator)}}
	}

	glog := log.NewGlogHandler(handler)
	glog.Verbosity(level)
	logger := log.NewLogger(glog)
	log.SetDefault(logger)

	closer := func() error {
		if rotator != nil {
			return rotator.Close()
		}
		return nil
	}
	return logger, closer, nil
}

// fanoutHandler implements slog.Handler by dispatching every record to all
// of its children.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}
