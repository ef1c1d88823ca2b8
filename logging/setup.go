package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shiro46mt/jp-medicine-master/config"
)

// Options configures the process-wide logger.
type Options struct {
	Dir            string
	Env            config.Environment
	Level          string // LOG_LEVEL override, empty for the environment default
	Verbose        bool   // lets tests print info-level console output
	RetentionWeeks int
	MaxFileSize    int64

	// Console receives the text output, stdout when nil.
	Console io.Writer
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// GetConsoleLogLevel picks the console level. Test runs stay quiet unless verbose and
// ignore LOG_LEVEL; elsewhere LOG_LEVEL wins over the environment default.
func GetConsoleLogLevel(env config.Environment, level string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}
	if level != "" {
		return parseLogLevel(level)
	}
	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel is always debug: the JSON file is the complete record.
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

// NewLogger builds a logger writing text to stdout and JSON to weekly rotating files.
// An empty Dir means console only. If the log directory cannot be used, it falls back to
// console only and returns the error.
func NewLogger(opts Options) (*slog.Logger, *RotatingLogger, error) {
	out := opts.Console
	if out == nil {
		out = os.Stdout
	}
	console := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose),
	})

	if opts.Dir == "" {
		return slog.New(console), nil, nil
	}

	rl := NewRotatingLogger(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
	if err := rl.Open(); err != nil {
		return slog.New(console), nil, err
	}

	file := slog.NewJSONHandler(rl, &slog.HandlerOptions{Level: GetFileLogLevel()})
	return slog.New(&multiHandler{handlers: []slog.Handler{console, file}}), rl, nil
}

// multiHandler fans a record out to every handler that accepts its level.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: hs}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: hs}
}
