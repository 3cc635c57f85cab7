package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWithWriter_LevelAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := Component(NewWithWriter(&buf, "warn"), "transfer")

	l.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %s", buf.String())
	}

	l.Warn().Msg("shown")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["component"] != "transfer" || entry["message"] != "shown" || entry["level"] != "warn" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewWithWriter_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "loud")
	l.Debug().Msg("debug")
	if buf.Len() != 0 {
		t.Fatal("debug should be filtered at default level")
	}
	l.Info().Msg("info")
	if buf.Len() == 0 {
		t.Fatal("info should be written at default level")
	}
}
