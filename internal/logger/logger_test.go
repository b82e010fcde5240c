package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestSessionLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: "debug", Output: &buf})

	l.Component("editor").Session("s1").Info().Msg("document initialized")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "s1", entry["session_id"])
	assert.Equal(t, "editor", entry["component"])
	assert.Equal(t, "escrito", entry["service"])
	assert.NotContains(t, entry, "caller")
}

func TestWithCaller(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Output: &buf, WithCaller: true})

	l.Info().Msg("hola")

	entry := decodeLine(t, &buf)
	assert.Contains(t, entry["caller"], "logger")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: "warn", Output: &buf})

	l.Info().Msg("descartado")
	l.LogResolution("global", "pattern", true, 0)
	assert.Zero(t, buf.Len())

	l.LogPersistence("s1", 10, 0, assert.AnError)
	entry := decodeLine(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "s1", entry["session_id"])
}
