package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(DefaultConfig())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer logger.Sync()

	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("Expected info level enabled by default")
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Expected debug level disabled by default")
	}
}

func TestNewLogger_DebugLevel(t *testing.T) {
	logger, err := NewLogger(Config{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer logger.Sync()

	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Expected debug level enabled")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNamedAndWith(t *testing.T) {
	logger := NewNoOpLogger()
	child := logger.Named("transfer")
	if child == nil || child.Logger == nil {
		t.Fatal("Named returned nil")
	}
	if logger.With() == nil {
		t.Fatal("With returned nil")
	}
}
