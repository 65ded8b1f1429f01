package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "warn", "json")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Info().Msg("hidden")
	log.Warn().Str("session_id", "s1").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "s1", entry["session_id"])
	assert.Equal(t, "shown", entry["message"])
}

func TestConfigureBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "loud", "json")

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
