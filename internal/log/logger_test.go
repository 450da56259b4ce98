package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: WarnLevel, Output: &buf})
	l.now = fixedClock

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("could not read file", "path", "lib/a.nix")

	assert.Equal(t, "[2024-05-01 12:00:00] WARN: could not read file path=lib/a.nix\n", buf.String())
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: DebugLevel, Output: &buf, JSONOutput: true})
	l.now = fixedClock

	l.Error("read failed", "path", "x.nix", "err", errors.New("permission denied"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "read failed", entry["message"])
	assert.Equal(t, "x.nix", entry["path"])
	assert.Equal(t, "permission denied", entry["err"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"WARN", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"info", InfoLevel},
		{"bogus", InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestDiscardWritesNothing(t *testing.T) {
	l := Discard()
	l.Error("nothing to see")
}
