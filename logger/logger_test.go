package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"WARN", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// Logging before InitLogger must not panic.
func TestDefaultLoggerIsSilent(t *testing.T) {
	Info("before init", zap.Int("n", 1))
	With(zap.String("run_id", "x")).Debug("child")
	if err := Sync(); err != nil {
		t.Errorf("Sync: %v", err)
	}
}

func TestInitLogger(t *testing.T) {
	prev := zapLog
	t.Cleanup(func() { zapLog = prev })

	if err := InitLogger(zapcore.WarnLevel); err != nil {
		t.Fatalf("InitLogger: %v", err)
	}
	if zapLog.Core().Enabled(zapcore.InfoLevel) {
		t.Errorf("info enabled at warn level")
	}
	if !With().Core().Enabled(zapcore.ErrorLevel) {
		t.Errorf("child logger dropped error level")
	}
}
