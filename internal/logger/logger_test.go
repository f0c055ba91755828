package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestSetup_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, "debug", true)

	Component("engine").Debug("timer fired", "record_id", "r1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "timer fired", line["msg"])
	assert.Equal(t, "engine", line["component"])
	assert.Equal(t, "connect4_bot", line["service"])
	assert.Equal(t, "r1", line["record_id"])
}

func TestSetLevel_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, "info", false)

	Debug("hidden")
	assert.Zero(t, buf.Len())

	SetLevel("debug")
	Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
