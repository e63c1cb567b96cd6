package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestJSONLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(&buf, "warn", FormatJSON)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("hidden")
	logger.Component("store").Warn("table unreadable", zap.String("table", "pain_data"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["level"] != "warn" || entry["component"] != "store" || entry["table"] != "pain_data" || entry["msg"] != "table unreadable" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestAtomicLevelAdjustsAtRuntime(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(&buf, "error", FormatConsole)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("before")
	logger.Level.SetLevel(zapcore.DebugLevel)
	logger.Debug("after")
	out := buf.String()
	if strings.Contains(out, "before") || !strings.Contains(out, "after") || !strings.Contains(out, " | DEBUG | ") {
		t.Fatalf("unexpected console output %q", out)
	}
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	if _, err := New("chatty", FormatJSON); err == nil {
		t.Fatalf("expected level error")
	}
	if _, err := New("info", Format("xml")); err == nil {
		t.Fatalf("expected format error")
	}
	if _, err := New("", ""); err != nil {
		t.Fatalf("empty settings should default: %v", err)
	}
}
