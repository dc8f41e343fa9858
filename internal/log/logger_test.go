package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLoggerJSONComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf, Component: ComponentReport})
	l.Info("built", FieldEvents, 3)
	l.Debug("hidden")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec[FieldComponent] != ComponentReport || rec["msg"] != "built" || rec[FieldEvents] != float64(3) {
		t.Fatalf("unexpected record %v", rec)
	}

	buf.Reset()
	l.WithComponent(ComponentHTTP).Warn("slow")
	if !strings.Contains(buf.String(), `"component":"http"`) {
		t.Fatalf("component not switched: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("expected default logger")
	}
	var buf bytes.Buffer
	l := New(Config{Format: "text", Output: &buf, Component: ComponentHTTP})
	ctx := context.WithValue(context.Background(), LoggerContextKey, l)
	if FromContext(ctx) != l {
		t.Fatalf("logger not taken from context")
	}
}

func TestStructuredLoggerHTTPLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Format: "text", Output: &buf, Component: ComponentHTTP}))
	r := httptest.NewRequest("GET", "/?bucketH=taxYear", nil)

	sl.LogHTTPEnd(context.Background(), r, "req-1", 400, 3, "127.0.0.1")
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "status_code=400") {
		t.Fatalf("unexpected log: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("unexpected log: %s", buf.String())
	}
	buf.Reset()
	sl.LogError(context.Background(), "boom", errors.New("bad"), ComponentReport, OpBuild, nil)
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "error=bad") {
		t.Fatalf("unexpected log: %s", buf.String())
	}
}
