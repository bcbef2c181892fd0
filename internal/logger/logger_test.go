package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TextDefaultLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Options{Output: buf})

	l.Info("stored product", "product_id", 7)
	l.Debug("hidden")

	assert.Contains(t, buf.String(), "stored product")
	assert.Contains(t, buf.String(), "product_id=7")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNew_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Options{Level: "debug", Format: "json", Output: buf})

	l.With("component", "crawler").Debug("staged", "path", "a.txt")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "staged", entry["msg"])
	assert.Equal(t, "crawler", entry["component"])
	assert.Equal(t, "DEBUG", entry["level"])
}

func TestNew_ErrorLevelSuppressesWarn(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Options{Level: "error", Output: buf})

	l.Warn("rejected option")
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.in))
		})
	}
}
