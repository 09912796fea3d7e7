package markov

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Model is a loaded corpus model: the vocabulary, the encoded token stream and
// the transition table built from it. A Model is never modified after Build or
// Load return, so it is safe for concurrent use.
type Model struct {
	cfg        Config
	tokenizer  *CorpusTokenizer
	vocab      *Vocabulary
	stream     []int
	corpus     []int // stream without Sentinel positions, sampled by the fallback
	table      *TransitionTable
	terminator int
	logger     *slog.Logger
}

// ExportedModel is the JSON representation written by Export.
type ExportedModel struct {
	Config     Config     `json:"config"`
	Vocabulary []string   `json:"vocabulary"` // ranked, index == token id
	Stats      ModelStats `json:"stats"`
}

type loadOptions struct {
	logger *slog.Logger
	store  *Store
}

// LoadOption configures Build and Load.
type LoadOption func(*loadOptions)

// WithLogger sets the logger used by the model for loading and generation.
// By default, all logs are discarded.
func WithLogger(logger *slog.Logger) LoadOption {
	return func(o *loadOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStore makes Load consult a snapshot cache before tokenizing the corpus,
// and save the result after a miss.
func WithStore(store *Store) LoadOption {
	return func(o *loadOptions) { o.store = store }
}

func newLoadOptions(opts []LoadOption) *loadOptions {
	options := &loadOptions{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// Load reads the corpus file at path and builds a Model from it. If a Store is
// given and holds a snapshot for the same corpus and configuration, the
// snapshot is used instead. Snapshot failures are logged, never fatal.
func Load(ctx context.Context, path string, cfg Config, opts ...LoadOption) (*Model, error) {
	options := newLoadOptions(opts)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read corpus: %w", err)
	}

	var fingerprint string
	if options.store != nil {
		fingerprint = Fingerprint(data, cfg)
		m, err := options.store.Load(ctx, fingerprint, cfg, WithLogger(options.logger))
		if err == nil {
			options.logger.InfoContext(ctx, "Model loaded from snapshot",
				slog.String("fingerprint", fingerprint),
				slog.Int("vocab_size", m.vocab.Len()),
				slog.Int("table_rows", m.table.Len()),
			)
			return m, nil
		}
		if !errors.Is(err, ErrSnapshotNotFound) {
			options.logger.WarnContext(ctx, "Failed to read model snapshot, rebuilding",
				slog.String("fingerprint", fingerprint),
				slog.Any("error", err),
			)
		}
	}

	m, err := build(ctx, bytes.NewReader(data), cfg, options)
	if err != nil {
		return nil, err
	}

	if options.store != nil {
		if err = options.store.Save(ctx, fingerprint, m); err != nil {
			options.logger.WarnContext(ctx, "Failed to save model snapshot",
				slog.String("fingerprint", fingerprint),
				slog.Any("error", err),
			)
		}
	}
	return m, nil
}

// Build tokenizes the corpus read from r and builds a Model from it.
func Build(ctx context.Context, r io.Reader, cfg Config, opts ...LoadOption) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return build(ctx, r, cfg, newLoadOptions(opts))
}

func build(ctx context.Context, r io.Reader, cfg Config, options *loadOptions) (*Model, error) {
	tokenizer := NewCorpusTokenizer(WithLineRange(cfg.StartLine, cfg.EndLine))
	tokens, err := tokenizer.Tokenize(r)
	if err != nil {
		return nil, fmt.Errorf("tokenizer error: %w", err)
	}
	if len(tokens) == 0 {
		return nil, ErrEmptyCorpus
	}

	vocab, stream, err := BuildVocabulary(tokens, cfg.VocabSize)
	if err != nil {
		return nil, err
	}

	m, err := newModel(cfg, vocab, stream, options.logger)
	if err != nil {
		return nil, err
	}

	options.logger.InfoContext(ctx, "Model built",
		slog.Int("tokens", len(tokens)),
		slog.Int("vocab_size", vocab.Len()),
		slog.Int("order", cfg.Order),
		slog.Int("table_rows", m.table.Len()),
	)
	return m, nil
}

// newModel assembles a Model from a vocabulary and its encoded stream.
func newModel(cfg Config, vocab *Vocabulary, stream []int, logger *slog.Logger) (*Model, error) {
	corpus := make([]int, 0, len(stream))
	for _, id := range stream {
		if id != Sentinel {
			corpus = append(corpus, id)
		}
	}
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}

	table, err := BuildTransitionTable(stream, cfg.Order)
	if err != nil {
		return nil, err
	}

	terminator, ok := vocab.ID(Terminator)
	if !ok {
		terminator = Sentinel
	}

	return &Model{
		cfg:        cfg,
		tokenizer:  NewCorpusTokenizer(WithLineRange(cfg.StartLine, cfg.EndLine)),
		vocab:      vocab,
		stream:     stream,
		corpus:     corpus,
		table:      table,
		terminator: terminator,
		logger:     logger,
	}, nil
}

// SetLogger replaces the logger used for generation. It must be called before
// the model is shared between goroutines.
func (m *Model) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Config returns the configuration the model was built with.
func (m *Model) Config() Config {
	return m.cfg
}

// Vocabulary returns the model's vocabulary.
func (m *Model) Vocabulary() *Vocabulary {
	return m.vocab
}

// Table returns the model's transition table.
func (m *Model) Table() *TransitionTable {
	return m.table
}

// Contains reports whether word can be used as a start word.
func (m *Model) Contains(word string) bool {
	_, ok := m.vocab.ID(word)
	return ok
}

// Export writes the model's configuration, vocabulary and statistics as
// indented JSON.
func (m *Model) Export(w io.Writer) error {
	exported := ExportedModel{
		Config:     m.cfg,
		Vocabulary: m.vocab.Tokens(),
		Stats:      m.Stats(),
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}
