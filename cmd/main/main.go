package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/CTAG07/sentence-simulator/pkg/markov"
	"github.com/natefinch/atomic"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "./config.json", "path to the JSON configuration file")
	exportPath := flag.String("export", "", "load the model, write it as JSON to this path and exit")
	flag.Parse()

	baseLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(*configPath, *exportPath); err != nil {
		baseLogger.Error("An error occurred during server run, shutting down.", "error", err)
		os.Exit(1)
	}

	baseLogger.Info("Sentence simulator has shut down.")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// run loads the configuration and the model, then serves the API until an OS
// signal arrives or the listener fails.
func run(configPath, exportPath string) error {
	config, err := LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(config.Server.LogLevel)}))
	logger.Info("Starting server cycle...")

	loadOpts := []markov.LoadOption{markov.WithLogger(logger)}

	var store *markov.Store
	if config.Server.SnapshotCache {
		db, err := initDB(config.Server.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer func() {
			logger.Info("Closing database connection.")
			if err := db.Close(); err != nil {
				logger.Error("Failed to close database", "error", err)
			}
		}()

		if err = markov.SetupSchema(db); err != nil {
			return fmt.Errorf("failed to setup snapshot schema: %w", err)
		}
		store, err = markov.NewStore(db)
		if err != nil {
			return fmt.Errorf("failed to prepare snapshot store: %w", err)
		}
		defer store.Close()
		loadOpts = append(loadOpts, markov.WithStore(store))
	}

	m, err := loadModel(context.Background(), config, store, loadOpts, logger)
	if err != nil {
		return err
	}

	if exportPath != "" {
		if err = exportModel(m, exportPath); err != nil {
			return err
		}
		logger.Info("Model exported", "path", exportPath)
		return nil
	}

	state := &ModelState{}
	state.Set(m)
	server := NewServer(config, logger, state)
	httpServer := &http.Server{
		Addr:              config.Server.ServerAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		logger.Info("Starting sentence simulator API server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("api server failed: %w", err)
		}
	}()

	osSignalChan := make(chan os.Signal, 1)
	signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(osSignalChan)

	var runErr error
	select {
	case sig := <-osSignalChan:
		logger.Info("OS signal received, initiating shutdown.", "signal", sig.String())
	case runErr = <-errChan:
		logger.Error("Stopping server", "error", runErr)
	}

	logger.Info("Stopping server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = httpServer.Shutdown(ctx); err != nil {
		logger.Error("Api server shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped.")

	return runErr
}

// loadModel builds the model, or reads it from the snapshot cache, before
// anything is served. Old snapshots are pruned once the model is ready.
func loadModel(ctx context.Context, config *Config, store *markov.Store, opts []markov.LoadOption, logger *slog.Logger) (*markov.Model, error) {
	start := time.Now()
	m, err := markov.Load(ctx, config.Server.CorpusPath, *config.Model, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	logger.Info("Model ready", "duration", time.Since(start), "vocab_size", m.Vocabulary().Len())

	if !m.Contains(config.Server.DefaultStartWord) {
		logger.Warn("Default start word is not in the vocabulary", "word", config.Server.DefaultStartWord)
	}

	if store != nil {
		removed, err := store.Prune(ctx, config.Server.SnapshotKeep)
		if err != nil {
			logger.Warn("Failed to prune model snapshots", "error", err)
		} else if removed > 0 {
			logger.Info("Pruned old model snapshots", "removed", removed)
		}
	}
	return m, nil
}

// exportModel writes the JSON dump of m to path atomically.
func exportModel(m *markov.Model, path string) error {
	var buf bytes.Buffer
	if err := m.Export(&buf); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
