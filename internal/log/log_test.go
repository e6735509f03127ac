package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err=%v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Output: &buf, Component: ComponentBot})

	l.InfoContext(context.Background(), "hello", FieldCategory, "еда")
	l.WithComponent(ComponentWorker).Debug("tick")

	out := buf.String()
	if !strings.Contains(out, "component=bot") || !strings.Contains(out, "category=еда") {
		t.Fatalf("missing fields: %s", out)
	}
	if !strings.Contains(out, "component=worker") {
		t.Fatalf("component override missing: %s", out)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelInfo, Output: &buf})

	var gotID string
	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req_1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID = RequestIDFromContext(r.Context())
			FromContext(r.Context()).Info("inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if gotID != "req_1" {
		t.Fatalf("request id = %q", gotID)
	}
	if !strings.Contains(buf.String(), "request_id=req_1") {
		t.Fatalf("logger not enriched: %s", buf.String())
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Output: &buf}))
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", nil)

	sl.LogHTTPEnd(context.Background(), req, 503, 12, "10.0.0.1")
	sl.LogUpdateHandled(context.Background(), 42, "100", "week", "report")
	sl.LogError(context.Background(), "failed", errors.New("boom"), ComponentStorage, "create", nil)

	out := buf.String()
	for _, want := range []string{"level=ERROR", "status_code=503", "update_id=42", "reply_status=report", "error=boom", "component=storage"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
