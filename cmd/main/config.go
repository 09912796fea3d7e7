package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/CTAG07/sentence-simulator/pkg/markov"
	"github.com/natefinch/atomic"
)

// ServerConfig holds the configuration for the HTTP server and model loading.
type ServerConfig struct {
	ServerAddr       string   `json:"server_addr"`
	LogLevel         string   `json:"log_level"`
	CorpusPath       string   `json:"corpus_path"`
	DatabasePath     string   `json:"database_path"`
	SnapshotCache    bool     `json:"snapshot_cache"`
	SnapshotKeep     int      `json:"snapshot_keep"`
	AllowedOrigins   []string `json:"allowed_origins"`
	DefaultStartWord string   `json:"default_start_word"`
	RequestTimeoutMs int      `json:"request_timeout_ms"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server *ServerConfig  `json:"server_config"`
	Model  *markov.Config `json:"model_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ServerAddr:    ":8000",
		LogLevel:      "info",
		CorpusPath:    "./data/shakespeare.txt",
		DatabasePath:  "./data/snapshots.db?_journal_mode=WAL&_busy_timeout=5000",
		SnapshotCache: true,
		SnapshotKeep:  3,
		AllowedOrigins: []string{
			"http://localhost:5173",
			"https://sentence-simulator.onrender.com",
		},
		DefaultStartWord: "romeo",
		RequestTimeoutMs: 5000,
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values. Fields
// missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	defaults := markov.DefaultConfig()
	config := &Config{
		Server: DefaultServerConfig(),
		Model:  &defaults,
	}

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The server can still run with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.Server == nil {
		config.Server = DefaultServerConfig()
	}
	if config.Model == nil {
		config.Model = &defaults
	}

	if config.Server.SnapshotCache && config.Server.SnapshotKeep < 1 {
		return nil, fmt.Errorf("invalid snapshot_keep %d: must be at least 1", config.Server.SnapshotKeep)
	}

	if err = config.Model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model_config: %w", err)
	}

	return config, nil
}
