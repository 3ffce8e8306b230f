// Package logging wraps zap with an environment-driven setup shared by
// every component of the ledger core.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a thin wrapper around zap.Logger.
type Logger struct {
	*zap.Logger
}

// Config holds logging configuration.
type Config struct {
	// Level is the log level (debug, info, warn, error).
	Level string
	// Format is the log format (json or console).
	Format string
	// Development enables development mode and caller annotations.
	Development bool
}

// DefaultConfig returns the production defaults: info-level JSON to stdout.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
	}
}

// NewLogger creates a logger with the given configuration.
func NewLogger(config Config) (*Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	if config.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(parseLevel(config.Level)),
		Development:       config.Development,
		DisableCaller:     !config.Development,
		DisableStacktrace: !config.Development,
		Encoding:          config.Format,
		EncoderConfig:     encoderConfig,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{logger}, nil
}

// NewLoggerFromEnv creates a logger from environment variables:
// LOG_LEVEL (default info), LOG_FORMAT (default json), LOG_DEV=true for
// development mode.
func NewLoggerFromEnv() (*Logger, error) {
	config := DefaultConfig()
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Format = format
	}
	if os.Getenv("LOG_DEV") == "true" {
		config.Development = true
		config.Format = "console"
	}
	return NewLogger(config)
}

// NewNoOpLogger creates a logger that discards everything. Used in tests.
func NewNoOpLogger() *Logger {
	return &Logger{zap.NewNop()}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// With creates a child logger with additional fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{l.Logger.With(fields...)}
}

// Named creates a child logger with a name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{l.Logger.Named(name)}
}
