package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console", "unknown"} {
		cfg := DefaultConfig()
		cfg.Format = format
		logger, err := NewLogger(cfg)
		if err != nil {
			t.Fatalf("NewLogger(%s) failed: %v", format, err)
		}
		logger.Named("test").Debug("ignored")
	}
}

func TestSetGlobal_NilFallsBackToNoOp(t *testing.T) {
	prev := Global()
	defer SetGlobal(prev)

	SetGlobal(nil)
	if L() == nil {
		t.Fatal("global logger must never be nil")
	}
	L().Info("discarded")
}
