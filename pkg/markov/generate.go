package markov

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
)

// generateOptions Is used by the generate functions to configure default options.
type generateOptions struct {
	maxLength int
	rng       *rand.Rand
}

// GenerateOption is a function that configures generation parameters. It's used
// as a variadic argument in Generate and GenerateTokens.
type GenerateOption func(*generateOptions)

// WithMaxLength sets the maximum number of tokens generated after the start
// word. Non-positive values keep the model's configured cap.
func WithMaxLength(n int) GenerateOption {
	return func(o *generateOptions) {
		if n > 0 {
			o.maxLength = n
		}
	}
}

// WithRand makes generation draw from rng. A *rand.Rand is not safe for
// concurrent use, so concurrent callers must each pass their own.
func WithRand(rng *rand.Rand) GenerateOption {
	return func(o *generateOptions) { o.rng = rng }
}

// WithSeed makes generation deterministic by seeding a private PCG generator.
func WithSeed(seed uint64) GenerateOption {
	return func(o *generateOptions) { o.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// Generate builds a sentence starting from startWord and returns it with
// punctuation re-attached, e.g. "romeo, is here.". The start word must already
// be normalized (lower-cased); if it is not in the vocabulary the error wraps
// ErrUnknownStartWord.
func (m *Model) Generate(ctx context.Context, startWord string, opts ...GenerateOption) (string, error) {
	tokens, err := m.GenerateTokens(ctx, startWord, opts...)
	if err != nil {
		return "", err
	}
	return m.tokenizer.Join(tokens), nil
}

// GenerateTokens is like Generate but returns the raw token sequence,
// start word included. Generation stops after the terminator token or after
// the maximum number of generated tokens, whichever comes first.
func (m *Model) GenerateTokens(ctx context.Context, startWord string, opts ...GenerateOption) ([]string, error) {
	startID, ok := m.vocab.ID(startWord)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStartWord, startWord)
	}

	options := &generateOptions{
		maxLength: m.cfg.MaxLength,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.rng == nil {
		options.rng = newRand()
	}

	// Large caps grow on demand instead of being preallocated.
	capacity := min(options.maxLength, 64) + 1
	ids := make([]int, 1, capacity)
	ids[0] = startID
	tokens := make([]string, 1, capacity)
	tokens[0] = startWord

	terminated := false
	for generated := 0; generated < options.maxLength; generated++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		key := ids
		if len(key) > m.cfg.Order {
			key = key[len(key)-m.cfg.Order:]
		}
		next := m.predictID(key, options.rng)
		text, _ := m.vocab.Token(next)

		ids = append(ids, next)
		tokens = append(tokens, text)

		if next == m.terminator {
			terminated = true
			break
		}
	}

	if terminated {
		m.logger.DebugContext(ctx, "Generation terminated by sentence terminator",
			slog.String("start_word", startWord),
			slog.Int("generated_length", len(tokens)-1),
		)
	} else {
		m.logger.DebugContext(ctx, "Generation terminated by reaching maxLength",
			slog.String("start_word", startWord),
			slog.Int("max_length", options.maxLength),
		)
	}

	return tokens, nil
}
