package config

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerCarriesServiceAndProcessFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, LoggingConfig{Level: "info", Format: "json"}, "worker")

	logger.Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "sponsorhub", line["service"])
	require.Equal(t, "worker", line["process"])
	require.Equal(t, "hello", line["message"])
}

func TestLoggerUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, LoggingConfig{Level: "shouting"}, "serve")

	logger.Debug().Msg("suppressed")
	require.Zero(t, buf.Len())

	logger.Info().Msg("kept")
	require.NotZero(t, buf.Len())
}
