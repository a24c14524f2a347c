package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":      zerolog.DebugLevel,
		"DEV":        zerolog.DebugLevel,
		" info ":     zerolog.InfoLevel,
		"warning":    zerolog.WarnLevel,
		"production": zerolog.ErrorLevel,
		"":           zerolog.InfoLevel,
		"loud":       zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in, zerolog.InfoLevel), "input %q", in)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.WarnLevel, "json")

	logger.Info().Msg("hidden")
	logger.Warn().Str("password", "4242").Msg("full")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "4242", line["password"])
	assert.Equal(t, "full", line["message"])
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.InfoLevel, "")
	logger.Info().Msg("starting")
	assert.Contains(t, buf.String(), "starting")
	assert.False(t, json.Valid(buf.Bytes()))
}
