package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	l := WithCycle("0501234567", "003", "0501234567-cycle-7")
	l.Info().Msg("cycle started")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a JSON log line, got %q: %v", buf.String(), err)
	}

	expected := map[string]string{
		"service":  serviceName,
		"identity": "0501234567",
		"index":    "003",
		"cycleId":  "0501234567-cycle-7",
		"message":  "cycle started",
	}
	for k, v := range expected {
		if entry[k] != v {
			t.Errorf("expected %s=%q, got %v", k, v, entry[k])
		}
	}
}

func TestInit_Level(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	t.Cleanup(func() { Init(DefaultConfig()) })

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			Init(Config{Level: tt.level, Output: &bytes.Buffer{}})
			if got := zerolog.GlobalLevel(); got != tt.expected {
				t.Errorf("expected level %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestWithComponent_BelowLevelDropped(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	l := WithComponent("pipeline")
	l.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info entry dropped at warn level, got %q", buf.String())
	}

	l.Warn().Msg("shown")
	if !bytes.Contains(buf.Bytes(), []byte(`"component":"pipeline"`)) {
		t.Errorf("expected component field, got %q", buf.String())
	}
}
