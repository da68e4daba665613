package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// logFilePrefix names every file written by the rotating logger
const logFilePrefix = "absorpgen-"

// RotatingLogger writes to one file per ISO week and removes files older
// than the retention period. Files exceeding maxFileSize roll over to a
// numbered sibling within the same week.
type RotatingLogger struct {
	logDir      string
	retention   time.Duration
	maxFileSize int64

	mu          sync.Mutex
	currentFile *os.File
	currentKey  string
	currentSize int64
	sequence    int

	stop chan struct{}
	done chan struct{}
}

// NewRotatingLogger creates a rotating logger; call Close to release the file
func NewRotatingLogger(logDir string, retentionWeeks int, maxFileSize int64) *RotatingLogger {
	return &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// weekKey returns the week key in YYYY-Www format (ISO week)
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func (rl *RotatingLogger) fileName(key string, seq int) string {
	if seq == 0 {
		return filepath.Join(rl.logDir, logFilePrefix+key+".log")
	}
	return filepath.Join(rl.logDir, fmt.Sprintf("%s%s_%02d.log", logFilePrefix, key, seq))
}

// open switches to the file for key/seq (caller holds mu)
func (rl *RotatingLogger) open(key string, seq int) error {
	if rl.currentFile != nil {
		if err := rl.currentFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
		rl.currentFile = nil
	}

	path := rl.fileName(key, seq)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	var size int64
	if info, statErr := file.Stat(); statErr == nil {
		size = info.Size()
	}

	rl.currentFile = file
	rl.currentKey = key
	rl.sequence = seq
	rl.currentSize = size
	return nil
}

// Write implements io.Writer for slog handlers
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := weekKey(time.Now())
	switch {
	case rl.currentFile == nil || rl.currentKey != key:
		if err := rl.open(key, 0); err != nil {
			return 0, err
		}
	case rl.maxFileSize > 0 && rl.currentSize+int64(len(p)) > rl.maxFileSize:
		if err := rl.open(key, rl.sequence+1); err != nil {
			return 0, err
		}
	}

	n, err := rl.currentFile.Write(p)
	rl.currentSize += int64(n)
	return n, err
}

// cleanupOldLogs removes log files older than the retention period
func (rl *RotatingLogger) cleanupOldLogs() (int, error) {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().Add(-rl.retention)
	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(rl.logDir, name)); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}

// startCleanup runs cleanupOldLogs daily until Close is called
func (rl *RotatingLogger) startCleanup() {
	go func() {
		defer close(rl.done)
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-rl.stop:
				return
			case <-ticker.C:
				if n, err := rl.cleanupOldLogs(); err != nil {
					fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
				} else if n > 0 {
					fmt.Printf("Cleaned up %d old log files\n", n)
				}
			}
		}
	}()
}

// Close stops background cleanup and closes the current file
func (rl *RotatingLogger) Close() error {
	select {
	case <-rl.stop:
	default:
		close(rl.stop)
	}

	select {
	case <-rl.done:
	case <-time.After(2 * time.Second):
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.currentFile != nil {
		err := rl.currentFile.Close()
		rl.currentFile = nil
		return err
	}
	return nil
}

// ParseLogLevel maps a LOG_LEVEL value to a slog level, defaulting to info
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Options configures SetupLogger
type Options struct {
	LogDir         string
	Level          slog.Level
	RetentionWeeks int
	MaxFileSize    int64
}

// SetupLogger returns a logger writing text to stdout and JSON to a rotating
// file. With an empty LogDir, or when the directory is unusable, only the
// console handler is installed. The returned closer is never nil.
func SetupLogger(opts Options) (*slog.Logger, func() error) {
	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: opts.Level})
	noop := func() error { return nil }

	if opts.LogDir == "" {
		return slog.New(consoleHandler), noop
	}

	if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
		logger := slog.New(consoleHandler)
		logger.Error("Failed to create logs directory", "error", err)
		return logger, noop
	}

	retention := opts.RetentionWeeks
	if retention <= 0 {
		retention = 4
	}

	rl := NewRotatingLogger(opts.LogDir, retention, opts.MaxFileSize)
	rl.startCleanup()

	fileHandler := slog.NewJSONHandler(rl, &slog.HandlerOptions{Level: opts.Level})
	return slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}}), rl.Close
}

// multiHandler fans records out to several handlers
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
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
