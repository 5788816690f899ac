package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		format     string
		level      string
		logAt      slog.Level
		wantOutput bool
		wantJSON   bool
	}{
		{name: "text info", format: "text", level: "info", logAt: slog.LevelInfo, wantOutput: true},
		{name: "json info", format: "json", level: "info", logAt: slog.LevelInfo, wantOutput: true, wantJSON: true},
		{name: "debug shows debug", format: "text", level: "debug", logAt: slog.LevelDebug, wantOutput: true},
		{name: "info hides debug", format: "text", level: "info", logAt: slog.LevelDebug},
		{name: "warn hides info", format: "text", level: "warn", logAt: slog.LevelInfo},
		{name: "error shows error", format: "JSON", level: "ERROR", logAt: slog.LevelError, wantOutput: true, wantJSON: true},
		{name: "defaults", format: "", level: "", logAt: slog.LevelInfo, wantOutput: true},
		{name: "unknown level is info", format: "text", level: "loud", logAt: slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(tt.format, tt.level, &buf)
			logger.Log(context.Background(), tt.logAt, "hello", "nodes", 3)

			if !tt.wantOutput {
				assert.Zero(t, buf.Len(), buf.String())
				return
			}
			require.NotZero(t, buf.Len())
			assert.Contains(t, buf.String(), "hello")

			if tt.wantJSON {
				var record map[string]any
				require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
				assert.Equal(t, "hello", record["msg"])
				assert.EqualValues(t, 3, record["nodes"])
			} else {
				assert.Contains(t, buf.String(), "nodes=3")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestValidFormat(t *testing.T) {
	assert.True(t, ValidFormat("text"))
	assert.True(t, ValidFormat("JSON"))
	assert.True(t, ValidFormat(""))
	assert.False(t, ValidFormat("xml"))
}

func TestDiscard(t *testing.T) {
	assert.False(t, Discard().Enabled(context.Background(), slog.LevelError))
}
