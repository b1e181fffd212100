package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestComponentLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: "debug", Output: &buf})

	c := l.Component("bufferpool")
	c.Debug().Int64("page", 7).Msg("evict")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if entry["component"] != "bufferpool" {
		t.Errorf("component = %v, want bufferpool", entry["component"])
	}
	if entry["service"] != "idxdb" {
		t.Errorf("service = %v, want idxdb", entry["service"])
	}
	if entry["message"] != "evict" {
		t.Errorf("message = %v, want evict", entry["message"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: "warn", Output: &buf})
	l.Info("hidden")
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warn output, got %q", buf.String())
	}
}

func TestLogIndexOperationError(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: "debug", Output: &buf}).IndexLogger("emp.0")
	l.LogIndexOperation("bulk_load", time.Millisecond, 0, errors.New("boom"))
	out := buf.String()
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, "boom") {
		t.Fatalf("unexpected log output %q", out)
	}
	if !strings.Contains(out, `"index":"emp.0"`) {
		t.Fatalf("index field missing in %q", out)
	}
}

func TestCallerAndDisabledLevel(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(Config{Level: "info", Output: &buf, WithCaller: true}).Info("opened")
	if !strings.Contains(buf.String(), `"caller":`) {
		t.Fatalf("caller field missing in %q", buf.String())
	}

	buf.Reset()
	NewLogger(Config{Level: "disabled", Output: &buf}).Error("lost", errors.New("boom"))
	if buf.Len() != 0 {
		t.Fatalf("disabled logger wrote %q", buf.String())
	}
}
