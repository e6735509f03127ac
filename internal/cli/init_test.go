package cli

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("debug", "worker", &buf)
	logger.Debug("hello")

	out := buf.String()
	if !strings.Contains(out, "component=worker") || !strings.Contains(out, "hello") {
		t.Fatalf("unexpected output %q", out)
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("logger should be installed as the default")
	}
}

func TestSetupLogger_UnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("loud", "app", &buf)
	logger.Debug("hidden")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatal("debug must be off after falling back to info")
	}
	if !strings.Contains(out, "Falling back to info log level") {
		t.Fatalf("expected a fallback warning, got %q", out)
	}
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("PORT", "8080")
	t.Setenv("INGEST_MODE", "append")
	t.Setenv("AMQP_URL", "")
	if _, err := LoadAndValidateConfig(); err != nil {
		t.Fatalf("LoadAndValidateConfig: %v", err)
	}

	t.Setenv("INGEST_MODE", "replace")
	if _, err := LoadAndValidateConfig(); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestSignalContext(t *testing.T) {
	ctx, stop := SignalContext(context.Background())
	if ctx.Err() != nil {
		t.Fatal("context must start live")
	}
	stop()
	if ctx.Err() == nil {
		t.Fatal("stop must cancel the context")
	}
}
