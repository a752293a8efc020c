package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSONCarriesServiceAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "production", LogFormat: "json", LogLevel: "warn"})

	logger.Info("hidden")
	require.Zero(t, buf.Len())

	logger.Warn("closing mismatch", slog.Int64("difference", -500))
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "nou", record["service"])
	require.Equal(t, "production", record["env"])
	require.Equal(t, float64(-500), record["difference"])
	require.NotContains(t, record, slog.SourceKey)
}

func TestNewLoggerTextDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, nil)
	logger.Debug("skipped")
	logger.Info("started")
	require.NotContains(t, buf.String(), "skipped")
	require.Contains(t, buf.String(), "msg=started")
	require.Contains(t, buf.String(), "env=development")
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := parseLogLevel("DEBUG")
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, lvl)

	_, err = parseLogLevel("verbose")
	require.Error(t, err)
}
