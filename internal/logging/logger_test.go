package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger = NewComponentLogger(logger, "drawer-poller")
	logger.Info("poll scheduled", String(FieldAssetID, "asset-1"), Int("attempt", 2))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, "INFO drawer-poller: poll scheduled") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "asset_id=asset-1") || !strings.Contains(line, "attempt=2") {
		t.Fatalf("expected attrs in line: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Warn("field invalidated", String("field_key", "usage rights"))
	if !strings.Contains(buf.String(), `field_key="usage rights"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestJSONHandlerUsesShortKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("batch created", String(FieldBatchID, "b-1"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if record["msg"] != "batch created" {
		t.Fatalf("expected msg key, got %#v", record)
	}
	if record["level"] != "info" {
		t.Fatalf("expected lowercase level, got %#v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatal("expected ts key")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("ignored")
	logger.Warn("kept")
	if strings.Contains(buf.String(), "ignored") {
		t.Fatal("info record should have been filtered")
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Fatal("warn record missing")
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
