package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		configured LogLevel
		emit       LogLevel
		want       bool
	}{
		{"debug passes at debug", DebugLevel, DebugLevel, true},
		{"debug filtered at info", InfoLevel, DebugLevel, false},
		{"warn passes at info", InfoLevel, WarnLevel, true},
		{"info filtered at error", ErrorLevel, InfoLevel, false},
		{"error always passes", ErrorLevel, ErrorLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLogger(Config{Format: HumanFormat, Level: tt.configured, Output: &buf})
			l.log(tt.emit, "msg", nil)

			got := buf.Len() > 0
			if got != tt.want {
				t.Errorf("emitted=%v, want %v", got, tt.want)
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &buf})

	l.Info("indexed repo", Fields{"files": 12})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["message"] != "indexed repo" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestHumanFormatStableFieldOrder(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Format: HumanFormat, Level: InfoLevel, Output: &buf})

	l.Info("check", Fields{"b": 2, "a": 1, "c": 3})

	out := buf.String()
	if !strings.Contains(out, "a=1, b=2, c=3") {
		t.Errorf("fields not in sorted order: %q", out)
	}
}

func TestWithAttachesBaseFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &buf})
	child := l.With(Fields{"component": "citation"})

	child.Info("verified", Fields{"count": 3})

	var entry struct {
		Fields map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry.Fields["component"] != "citation" {
		t.Errorf("missing base field, got %v", entry.Fields)
	}
	if entry.Fields["count"] != float64(3) {
		t.Errorf("missing call field, got %v", entry.Fields)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	l := NewNopLogger()
	// Must not panic or write anywhere.
	l.Debug("a", nil)
	l.Error("b", Fields{"x": 1})
}
