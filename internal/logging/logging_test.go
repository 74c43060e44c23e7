package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_JSONFormatWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	NewComponentLogger(logger, "session").Info("collector done", String(FieldCollector, "javbus"), Int("records", 2))

	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("输出不是 JSON：%v (%s)", err, buf.String())
	}
	if m[FieldComponent] != "session" || m[FieldCollector] != "javbus" {
		t.Fatalf("字段缺失：%v", m)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("级别过滤不正确：%q", buf.String())
	}
}

func TestNew_UnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}

func TestParseLevelAndNop(t *testing.T) {
	if ParseLevel("DEBUG") != slog.LevelDebug || ParseLevel("nope") != slog.LevelInfo {
		t.Fatalf("ParseLevel 不符合预期")
	}
	NewNop().Error("discarded", Error(nil))
}
