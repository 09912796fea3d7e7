package markov

import (
	"context"
	"database/sql"
	gobuild "go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// scenarioCorpus is small enough that every word makes it into the vocabulary.
const scenarioCorpus = "Romeo is here . Juliet is there ."

// testConfig returns a config that keeps every input line.
func testConfig(order int) Config {
	return Config{
		StartLine: 0,
		EndLine:   0,
		Order:     order,
		VocabSize: 1000,
		MaxLength: 50,
	}
}

// buildTestModel builds a model from an in-memory corpus.
func buildTestModel(tb testing.TB, corpus string, cfg Config) *Model {
	tb.Helper()
	m, err := Build(context.Background(), strings.NewReader(corpus), cfg)
	if err != nil {
		tb.Fatalf("Build() error = %v", err)
	}
	return m
}

// modelFromStream builds a model directly from a ranked vocabulary and an id
// stream, bypassing the tokenizer.
func modelFromStream(tb testing.TB, ranked []string, stream []int, order int) *Model {
	tb.Helper()
	m, err := newModel(testConfig(order), newVocabulary(ranked), stream, newLoadOptions(nil).logger)
	if err != nil {
		tb.Fatalf("newModel() error = %v", err)
	}
	return m
}

// setupTestStore creates a new SQLite database file and a Store for testing.
// It uses t.Cleanup to ensure resources are released.
func setupTestStore(t *testing.T) (*sql.DB, *Store) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(store.Close)

	return db, store
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := gobuild.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = strings.Repeat("this is a fallback corpus for benchmarking. it is not very long but will prevent a crash. ", 50)
				return
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
