package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CTAG07/sentence-simulator/pkg/markov"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportModel(t *testing.T) {
	cfg := markov.Config{Order: 2, VocabSize: 1000, MaxLength: 50}
	m, err := markov.Build(context.Background(), strings.NewReader(testCorpus), cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, exportModel(m, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var exported markov.ExportedModel
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Equal(t, cfg, exported.Config)
	assert.Equal(t, m.Vocabulary().Tokens(), exported.Vocabulary)
	assert.Equal(t, m.Stats(), exported.Stats)
}

func TestRunExport(t *testing.T) {
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(corpusPath, []byte(testCorpus), 0644))

	config := Config{
		Server: DefaultServerConfig(),
		Model:  &markov.Config{Order: 2, VocabSize: 1000, MaxLength: 50},
	}
	config.Server.CorpusPath = corpusPath
	config.Server.DatabasePath = filepath.Join(dir, "snapshots.db")
	data, err := json.Marshal(config)
	require.NoError(t, err)
	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, data, 0644))

	exportPath := filepath.Join(dir, "model.json")
	require.NoError(t, run(configPath, exportPath))

	_, err = os.Stat(exportPath)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "snapshots.db"))
	assert.NoError(t, err, "expected the snapshot cache to be created")
}

func TestRunLoadFailure(t *testing.T) {
	dir := t.TempDir()
	config := Config{
		Server: DefaultServerConfig(),
		Model:  &markov.Config{Order: 2, VocabSize: 1000, MaxLength: 50},
	}
	config.Server.ServerAddr = "127.0.0.1:0"
	config.Server.CorpusPath = filepath.Join(dir, "missing.txt")
	config.Server.SnapshotCache = false
	data, err := json.Marshal(config)
	require.NoError(t, err)
	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, data, 0644))

	err = run(configPath, "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadModelUsesAndPrunesCache(t *testing.T) {
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(corpusPath, []byte(testCorpus), 0644))

	db, err := initDB(filepath.Join(dir, "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, markov.SetupSchema(db))
	store, err := markov.NewStore(db)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	config := &Config{Server: DefaultServerConfig()}
	config.Server.CorpusPath = corpusPath
	config.Server.SnapshotKeep = 1
	opts := []markov.LoadOption{markov.WithStore(store)}

	// Two configurations leave two snapshots before pruning.
	for _, order := range []int{1, 2} {
		config.Model = &markov.Config{Order: order, VocabSize: 1000, MaxLength: 50}
		m, err := loadModel(context.Background(), config, store, opts, testLogger())
		require.NoError(t, err)
		assert.Equal(t, order, m.Config().Order)
	}

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
