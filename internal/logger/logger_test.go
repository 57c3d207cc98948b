package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitAppliesToEarlierComponentLoggers(t *testing.T) {
	// Mirrors the package-level `var log = logger.ForComponent(...)` idiom:
	// the logger exists before Init runs.
	early := ForComponent("guard")

	var buf bytes.Buffer
	Init(Config{Level: slog.LevelDebug, Format: "json", Output: &buf})

	early.Debug("debug line", "key", "value")

	require.NotEmpty(t, buf.Bytes(), "pre-Init component logger must honor Init's level")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "debug line", rec["msg"])
	assert.Equal(t, "guard", rec["component"])
	assert.Equal(t, "value", rec["key"])
}

func TestInitLevelFiltersComponentLoggers(t *testing.T) {
	log := ForComponent("store")

	var buf bytes.Buffer
	Init(Config{Level: slog.LevelWarn, Format: "text", Output: &buf})

	log.Info("dropped")
	assert.Empty(t, buf.String())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
	assert.Contains(t, buf.String(), "component=store")
}

func TestInitSwitchesFormat(t *testing.T) {
	log := ForComponent("feed")

	var textBuf bytes.Buffer
	Init(Config{Level: slog.LevelInfo, Format: "text", Output: &textBuf})
	log.Info("hello")
	assert.Contains(t, textBuf.String(), "msg=hello")

	var jsonBuf bytes.Buffer
	Init(Config{Level: slog.LevelInfo, Format: "json", Output: &jsonBuf})
	log.Info("hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "feed", rec["component"])
}

func TestWithChainsAttributes(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: slog.LevelInfo, Format: "text", Output: &buf})

	log := ForComponent("pipeline").With("run_id", "abc")
	log.Info("step finished")

	line := buf.String()
	assert.Contains(t, line, "component=pipeline")
	assert.Contains(t, line, "run_id=abc")
	assert.True(t, strings.Contains(line, "msg=\"step finished\"") || strings.Contains(line, "msg=step"), line)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
