package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/CTAG07/sentence-simulator/pkg/markov"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultServerConfig(), config.Server)
	assert.Equal(t, markov.DefaultConfig(), *config.Model)

	data, err := os.ReadFile(path)
	require.NoError(t, err, "expected the default config file to be written")

	var written Config
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, config.Server, written.Server)
	assert.Equal(t, config.Model, written.Model)
}

func TestLoadConfigMergesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
  "server_config": {"server_addr": ":9000", "default_start_word": "juliet"},
  "model_config": {"order": 2}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", config.Server.ServerAddr)
	assert.Equal(t, "juliet", config.Server.DefaultStartWord)
	assert.Equal(t, DefaultServerConfig().CorpusPath, config.Server.CorpusPath)
	assert.Equal(t, 2, config.Model.Order)
	assert.Equal(t, markov.DefaultConfig().VocabSize, config.Model.VocabSize)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	malformed := filepath.Join(dir, "malformed.json")
	require.NoError(t, os.WriteFile(malformed, []byte(`{"server_config": `), 0644))
	_, err := LoadConfig(malformed)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"model_config": {"vocab_size": 0}}`), 0644))
	_, err = LoadConfig(invalid)
	assert.True(t, errors.Is(err, markov.ErrConfiguration), "got %v", err)

	var cfgErr *markov.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "vocab_size", cfgErr.Field)
}

func TestLoadConfigSnapshotKeep(t *testing.T) {
	dir := t.TempDir()

	zero := filepath.Join(dir, "zero.json")
	require.NoError(t, os.WriteFile(zero, []byte(`{"server_config": {"snapshot_keep": 0}}`), 0644))
	_, err := LoadConfig(zero)
	assert.ErrorContains(t, err, "snapshot_keep")

	// Without the cache the value is unused.
	disabled := filepath.Join(dir, "disabled.json")
	require.NoError(t, os.WriteFile(disabled, []byte(`{"server_config": {"snapshot_cache": false, "snapshot_keep": 0}}`), 0644))
	_, err = LoadConfig(disabled)
	assert.NoError(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("info"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}
