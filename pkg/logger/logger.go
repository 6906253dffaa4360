package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// LogLevel represents logging levels
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config holds logger configuration
type Config struct {
	Level        LogLevel `yaml:"level"`
	Format       string   `yaml:"format"` // "json", "text"
	Output       string   `yaml:"output"` // "stdout", "stderr", file path
	EnableCaller bool     `yaml:"enable_caller"`
	Component    string   `yaml:"-"`
	Environment  string   `yaml:"environment"`

	// Writer overrides Output when set.
	Writer io.Writer `yaml:"-"`
}

// Logger wraps slog.Logger with component scoping
type Logger struct {
	*slog.Logger
	config Config
	output io.Writer
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:        LevelInfo,
		Format:       "json",
		Output:       "stdout",
		EnableCaller: true,
		Environment:  "development",
	}
}

// ParseLevel accepts the usual spellings and falls back to info.
func ParseLevel(raw string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "warning":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// New creates a logger instance
func New(config Config) *Logger {
	var level slog.Level
	switch config.Level {
	case LevelDebug:
		level = slog.LevelDebug
	case LevelWarn:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	output := config.Writer
	if output == nil {
		switch config.Output {
		case "", "stdout":
			output = os.Stdout
		case "stderr":
			output = os.Stderr
		default:
			if file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666); err == nil {
				output = file
			} else {
				output = os.Stdout
			}
		}
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if config.Format == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	slogLogger := slog.New(handler)
	if config.Component != "" {
		slogLogger = slogLogger.With("component", config.Component)
	}
	if config.Environment != "" {
		slogLogger = slogLogger.With("environment", config.Environment)
	}

	return &Logger{
		Logger: slogLogger,
		config: config,
		output: output,
	}
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return New(Config{Level: LevelError, Writer: io.Discard})
}

// WithContext creates a new logger with additional context
func (l *Logger) WithContext(args ...interface{}) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		config: l.config,
		output: l.output,
	}
}

// WithComponent creates a logger with component context
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithContext("component", component)
}

// Error logs at error level, adding the caller when enabled
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.config.EnableCaller {
		if _, file, line, ok := runtime.Caller(1); ok {
			args = append(args, "caller", fmt.Sprintf("%s:%d", filepath.Base(file), line))
		}
	}
	l.Logger.Error(msg, args...)
}

// Close closes the output when it is a file
func (l *Logger) Close() error {
	if l.output == os.Stdout || l.output == os.Stderr {
		return nil
	}
	if closer, ok := l.output.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
