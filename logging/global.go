// Package logging wires log/slog for the service: console text output, weekly rotating
// JSON files and a chi request-logging middleware.
package logging

import (
	"log/slog"
	"os"
	"sync"
)

type LoggingService struct {
	Logger   *slog.Logger
	rotating *RotatingLogger
}

var (
	DefaultLoggingService *LoggingService

	fallbackOnce sync.Once
	fallback     *slog.Logger
)

// InitLogger installs the process-wide logger and makes it the slog default.
// A previous logger is closed first.
func InitLogger(opts Options) error {
	logger, rl, err := NewLogger(opts)

	_ = Close()
	DefaultLoggingService = &LoggingService{Logger: logger, rotating: rl}
	slog.SetDefault(logger)

	if err != nil {
		logger.Error("File logging disabled", "dir", opts.Dir, "error", err)
	}
	return err
}

// Close flushes and closes the rotating file, if any.
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.rotating == nil {
		return nil
	}
	return DefaultLoggingService.rotating.Close()
}

// Logger returns the process-wide logger, or a console fallback before InitLogger ran.
func Logger() *slog.Logger {
	if DefaultLoggingService != nil && DefaultLoggingService.Logger != nil {
		return DefaultLoggingService.Logger
	}
	fallbackOnce.Do(func() {
		fallback = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	})
	return fallback
}

func Info(msg string, args ...any)  { Logger().Info(msg, args...) }
func Warn(msg string, args ...any)  { Logger().Warn(msg, args...) }
func Error(msg string, args ...any) { Logger().Error(msg, args...) }
func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }
