// Package logging writes the application log to a file; the terminal
// belongs to the console UI.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	mu      sync.RWMutex
	logger  = log.New(io.Discard)
	logFile *os.File
)

// Init opens path for appending and routes all package logging to it.
// level is one of debug, info, warn, error; unknown levels mean info.
func Init(path, level string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("logging: create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logging: open log file: %w", err)
	}
	l := New(f, level)

	mu.Lock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	logger = l
	mu.Unlock()

	l.Info("seekr started", "pid", os.Getpid())
	return nil
}

// New returns a logger writing to w in the format used by the log file.
func New(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           lvl,
	})
}

// SetOutput replaces the package logger, for commands that log to stderr.
func SetOutput(w io.Writer, level string) {
	mu.Lock()
	logger = New(w, level)
	mu.Unlock()
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logger.Info("seekr shutting down")
		logFile.Close()
		logFile = nil
	}
	logger = log.New(io.Discard)
}

// Logger returns the current logger for injection into other packages.
func Logger() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// WithPrefix returns the current logger with a component prefix.
func WithPrefix(prefix string) *log.Logger {
	return Logger().WithPrefix(prefix)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger { return log.New(io.Discard) }

func Debug(msg string, keyvals ...interface{}) { Logger().Debug(msg, keyvals...) }
func Info(msg string, keyvals ...interface{})  { Logger().Info(msg, keyvals...) }
func Warn(msg string, keyvals ...interface{})  { Logger().Warn(msg, keyvals...) }
func Error(msg string, keyvals ...interface{}) { Logger().Error(msg, keyvals...) }
