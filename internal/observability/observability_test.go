package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tech17x/fizzyadmin-sub000/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerTo_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "json"})
	logger.Debug("hidden")
	logger.Info("reports loaded", "orders", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "reports loaded" || entry["orders"] != float64(3) {
		t.Errorf("unexpected entry %v", entry)
	}

	buf.Reset()
	NewLoggerTo(&buf, config.LoggerConfig{Level: "debug", Format: "text"}).Debug("visible")
	if !strings.Contains(buf.String(), "msg=visible") {
		t.Errorf("text handler output = %q", buf.String())
	}
}

func TestLogOutput(t *testing.T) {
	if w := logOutput(config.LoggerConfig{}); w == nil {
		t.Fatal("logOutput returned nil")
	}

	cfg := config.LoggerConfig{File: filepath.Join(t.TempDir(), "app.log"), MaxSizeMB: 1}
	if w := logOutput(cfg); w == nil {
		t.Fatal("logOutput with file returned nil")
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if got := GetRequestID(ctx); got != "" {
		t.Errorf("GetRequestID(empty) = %q", got)
	}
	if got := GetRequestID(WithRequestID(ctx, "abc")); got != "abc" {
		t.Errorf("GetRequestID = %q, want abc", got)
	}
}

func TestStartSpan_Nesting(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "parent")
	_, child := StartSpan(ctx, "child")

	if child.TraceID != parent.TraceID {
		t.Errorf("child trace %q, want %q", child.TraceID, parent.TraceID)
	}
	if child.ParentID != parent.SpanID {
		t.Errorf("child parent %q, want %q", child.ParentID, parent.SpanID)
	}
	if len(parent.SpanID) != 16 {
		t.Errorf("span id %q should be 16 characters", parent.SpanID)
	}
	if GetSpan(ctx) != parent {
		t.Error("GetSpan should return the span stored in ctx")
	}
}

func TestSpan_FinishAndLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, span := StartSpan(context.Background(), "reports.load")
	span.SetTag("source", "file")
	span.SetError(errors.New("bad payload"))
	span.FinishAndLog(ctx, logger)

	if span.Duration == nil || span.EndTime == nil {
		t.Fatal("span should be finished")
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["level"] != "ERROR" || entry["error"] != "bad payload" || entry["source"] != "file" {
		t.Errorf("unexpected span log %v", entry)
	}
}
