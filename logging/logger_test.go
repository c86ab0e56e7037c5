package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"note", LevelNote},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"critical", LevelCritical},
		{"fatal", LevelFatal},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_LevelNamesRendered(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: slog.LevelDebug, Output: &buf})

	logger.Log(context.Background(), LevelNote, "hello")
	if !strings.Contains(buf.String(), "level=NOTE") {
		t.Errorf("expected level=NOTE in output, got %q", buf.String())
	}

	buf.Reset()
	logger.Log(context.Background(), LevelCritical, "uh oh")
	if !strings.Contains(buf.String(), "level=CRITICAL") {
		t.Errorf("expected level=CRITICAL in output, got %q", buf.String())
	}
}

func TestSetDefaultAndDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: slog.LevelInfo, Output: &buf})
	SetDefault(logger)
	defer SetDefault(NewLogger(Config{Level: slog.LevelInfo}))

	Info("marker message")
	if !strings.Contains(buf.String(), "marker message") {
		t.Errorf("expected marker message in output, got %q", buf.String())
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	got := FromContext(context.Background())
	if got == nil {
		t.Fatal("FromContext(context.Background()) returned nil")
	}
}
