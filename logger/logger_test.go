// ABOUTME: Tests for structured logging setup
package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestSetupEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf)

	log.Info("pull complete", "user_id", "user-1", "created", 3)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "pull complete" {
		t.Errorf("unexpected msg: %v", entry["msg"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("unexpected level: %v", entry["level"])
	}
	if entry["user_id"] != "user-1" {
		t.Errorf("unexpected user_id: %v", entry["user_id"])
	}
}

func TestSetupFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf)

	log.Debug("noisy detail")

	if buf.Len() != 0 {
		t.Errorf("expected debug output to be suppressed, got %q", buf.String())
	}
}
