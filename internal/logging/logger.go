// Package logging provides leveled, structured logging for the UPS bridge.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// LogLevel represents the available log levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) hclog() hclog.Level {
	switch l {
	case LevelDebug:
		return hclog.Debug
	case LevelWarn:
		return hclog.Warn
	case LevelError:
		return hclog.Error
	default:
		return hclog.Info
	}
}

// Config holds logging configuration.
type Config struct {
	Level  LogLevel
	Output io.Writer
	Name   string
	JSON   bool
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Output: os.Stderr,
		Name:   "ups-snmpd",
	}
}

// Logger wraps an hclog.Logger with the small alternating key-value API
// used throughout this repository.
type Logger struct {
	hl hclog.Logger
}

// NewLogger creates a new logger.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	hl := hclog.New(&hclog.LoggerOptions{
		Name:       config.Name,
		Level:      config.Level.hclog(),
		Output:     output,
		JSONFormat: config.JSON,
	})
	return &Logger{hl: hl}
}

// Named returns a sub-logger with the given name appended, e.g.
// logging.Default().Named("engine").
func (l *Logger) Named(name string) *Logger {
	return &Logger{hl: l.hl.Named(name)}
}

func (l *Logger) Debug(msg string, args ...any) { l.hl.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.hl.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.hl.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.hl.Error(msg, args...) }

// HCLog returns the underlying hclog.Logger for components that want to
// pass a standard logger interface through (e.g. an HTTP server or a
// hashicorp library).
func (l *Logger) HCLog() hclog.Logger { return l.hl }

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// Default returns the default logger, creating it if necessary.
func Default() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
