package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWriter(&buf, "warn"))

	Info().Msg("hidden")
	Warn().Str("sensor", "water").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "water", entry["sensor"])
	assert.Equal(t, "warn", entry["level"])
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	err := InitWriter(&buf, "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")

	assert.Error(t, InitWriter(&buf, ""))
}
