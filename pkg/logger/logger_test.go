package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/arckit11/v-novaa/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitProductionWritesJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(LoggerOpts{Environment: core.Production, Output: &buf})
	t.Cleanup(func() { Init() })

	Debug().Msg("hidden")
	Info().Str("session_id", "s1").Msg("visible")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "visible", line["message"])
	assert.Equal(t, "s1", line["session_id"])
	assert.Equal(t, "v-novaa", line["service"])
}

func TestInitLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	Init(LoggerOpts{Environment: core.Production, Level: "warn", Output: &buf})
	t.Cleanup(func() { Init() })

	Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	l := Component("dispatch")
	l.Warn().Msg("shown")
	assert.Contains(t, buf.String(), `"component":"dispatch"`)
}
