package logging

import (
	"log/slog"
	"os"
	"sync"
)

// LoggingService holds the process-wide logger and its file closer
type LoggingService struct {
	Logger *slog.Logger
	closer func() error
}

var (
	DefaultLoggingService *LoggingService
	fallbackOnce          sync.Once
	fallbackLogger        *slog.Logger
)

// InitLogger installs the global logger and makes it the slog default
func InitLogger(opts Options) {
	logger, closer := SetupLogger(opts)
	DefaultLoggingService = &LoggingService{Logger: logger, closer: closer}
	slog.SetDefault(logger)
}

// Close flushes and closes the rotating log file, if any
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.closer == nil {
		return nil
	}
	return DefaultLoggingService.closer()
}

// Logger returns the global logger, or a stderr fallback before InitLogger
func Logger() *slog.Logger {
	if DefaultLoggingService != nil && DefaultLoggingService.Logger != nil {
		return DefaultLoggingService.Logger
	}
	fallbackOnce.Do(func() {
		fallbackLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	})
	return fallbackLogger
}

func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}
