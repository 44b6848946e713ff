package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestInit(t *testing.T) {
	logger := Init("test-service", slog.LevelInfo)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestInitWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := InitWriter(&buf, "chartrender", slog.LevelInfo)
	log.Info("frame drawn", slog.Int("bars", 220))
	log.Debug("hidden")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["service"] != "chartrender" {
		t.Errorf("expected service=chartrender, got %v", rec["service"])
	}
	if rec["bars"] != float64(220) {
		t.Errorf("expected bars=220, got %v", rec["bars"])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestGeneration_RoundTrip(t *testing.T) {
	ctx := context.Background()

	// No generation set
	if gen := Generation(ctx); gen != 0 {
		t.Errorf("expected 0, got %d", gen)
	}

	ctx = WithGeneration(ctx, 42)
	if gen := Generation(ctx); gen != 42 {
		t.Errorf("expected 42, got %d", gen)
	}
}

func TestLogAttrs(t *testing.T) {
	ctx := context.Background()

	attrs := LogAttrs(ctx)
	if attrs != nil {
		t.Errorf("expected nil attrs without generation, got %v", attrs)
	}

	ctx = WithGeneration(ctx, 7)
	attrs = LogAttrs(ctx)
	if len(attrs) != 1 {
		t.Fatalf("expected one attr, got %v", attrs)
	}
	if a, ok := attrs[0].(slog.Attr); !ok || a.Key != "generation" {
		t.Errorf("expected generation attr, got %v", attrs[0])
	}
}
