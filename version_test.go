package wavekit

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavekit-ai/wavekit/backends"
)

func TestCheckVersion(t *testing.T) {
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))

	// identical versions load silently
	require.NoError(t, checkVersion("pipeline", "0.4.0", "0.4.0", logger))
	assert.Empty(t, logs.String())

	// a minor or patch mismatch warns and loads
	require.NoError(t, checkVersion("pipeline", "0.3.1", "0.4.0", logger))
	assert.Contains(t, logs.String(), "different library version")

	// a leading v is accepted
	require.NoError(t, checkVersion("pipeline", "v0.4.0", "0.4.0", logger))
}

func TestCheckVersionMajorMismatch(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	var invalidConfig *backends.InvalidConfigurationError

	err := checkVersion("pipeline", "2.0.0", "0.4.0", logger)
	require.Error(t, err)
	assert.ErrorAs(t, err, &invalidConfig)
}

func TestCheckVersionUnparseable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	var invalidConfig *backends.InvalidConfigurationError

	err := checkVersion("pipeline", "not-a-version", "0.4.0", logger)
	require.Error(t, err)
	assert.ErrorAs(t, err, &invalidConfig)
}
