package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	return slog.New(&redactingHandler{base: base}), &buf
}

func TestRedactsSensitiveAttrs(t *testing.T) {
	logger, buf := captureLogger()

	logger.Info("provider call",
		slog.String("api_key", "sk-live-12345"),
		slog.String("Authorization", "Bearer sk-live-12345"),
		slog.String("provider", "deepseek"),
	)

	out := buf.String()
	if strings.Contains(out, "sk-live-12345") {
		t.Fatalf("secret leaked: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("expected redaction marker in output: %s", out)
	}
	if !strings.Contains(out, "deepseek") {
		t.Errorf("non-sensitive attr dropped: %s", out)
	}
}

func TestRedactsWithAttrs(t *testing.T) {
	logger, buf := captureLogger()

	logger.With(slog.String("openai_api_key", "sk-abc")).Info("boot")

	if strings.Contains(buf.String(), "sk-abc") {
		t.Fatalf("secret leaked via WithAttrs: %s", buf.String())
	}
}

func TestPlainAttrsPassThrough(t *testing.T) {
	logger, buf := captureLogger()

	logger.Info("routing", slog.String("provider", "openai"), slog.Int("duration_ms", 42))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if rec["provider"] != "openai" {
		t.Errorf("provider attr: got %v", rec["provider"])
	}
	if rec["duration_ms"] != float64(42) {
		t.Errorf("duration attr: got %v", rec["duration_ms"])
	}
}

func TestEnabledDelegates(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	h := &redactingHandler{base: base}

	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}
