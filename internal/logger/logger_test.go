package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestLogger_WritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", false, &buf)

	log.Info("employee created", map[string]interface{}{"id": 7})
	log.Warn("database not ready", map[string]interface{}{"attempt": 2})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "employee created", lines[0]["message"])
	assert.EqualValues(t, 7, lines[0]["id"])
	assert.Contains(t, lines[0], "time")

	assert.Equal(t, "warn", lines[1]["level"])
	assert.EqualValues(t, 2, lines[1]["attempt"])
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", false, &buf)

	log.Debug("dbg", nil)
	log.Info("inf", nil)
	log.Error("boom", nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "boom", lines[0]["message"])
}

func TestLogger_WithFieldsIsSticky(t *testing.T) {
	var buf bytes.Buffer
	base := New("debug", false, &buf)

	child := base.WithFields(map[string]interface{}{"component": "bootstrap"})
	child.Debug("resolving secret", map[string]interface{}{"secret": "rds"})
	base.Info("plain", nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "bootstrap", lines[0]["component"])
	assert.Equal(t, "rds", lines[0]["secret"])
	assert.NotContains(t, lines[1], "component")
}

func TestParseLevel_UnknownFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New("chatty", false, &buf)

	log.Debug("hidden", nil)
	log.Info("shown", nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Info("nothing", map[string]interface{}{"k": "v"})
	log.WithFields(nil).Error("still nothing", nil)
}
