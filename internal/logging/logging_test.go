package logging

import (
	"bytes"
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
		{"DEV", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{" warning ", slog.LevelWarn},
		{"prod", slog.LevelError},
		{"trace", LevelTrace},
		{"nonsense", slog.LevelError},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPionFactoryWritesScope(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	l := NewPionFactory(logger).NewLogger("ice")
	l.Infof("gathered %d candidates", 3)
	l.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "scope=ice") {
		t.Fatalf("missing scope in %q", out)
	}
	if !strings.Contains(out, "gathered 3 candidates") {
		t.Fatalf("missing message in %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at info level: %q", out)
	}
}
