package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredLoggerEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(INFO, &buf).WithComponent("controller").WithTraceID("abc-123")

	logger.Info("strategy switched", "from", "recency", "to", "frequency")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "strategy switched", entry["message"])
	assert.Equal(t, "controller", entry["component"])
	assert.Equal(t, "abc-123", entry["trace_id"])

	fields, ok := entry["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "recency", fields["from"])
	assert.Equal(t, "frequency", fields["to"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(WARN, &buf)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")
	logger.Error("also visible")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "visible")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel("Error"))
	assert.Equal(t, INFO, ParseLevel("unknown"))
	assert.Equal(t, INFO, ParseLevel(""))
}

func TestGenerateTraceID(t *testing.T) {
	a := GenerateTraceID()
	b := GenerateTraceID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestNoopLoggerIsSilent(t *testing.T) {
	logger := NewNoop().WithComponent("x").WithTraceID("y")
	// Must not panic or emit anything.
	logger.Debug("a")
	logger.Info("b", "k", "v")
	logger.Warn("c")
	logger.Error("d")
}
