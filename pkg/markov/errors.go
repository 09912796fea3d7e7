package markov

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigError.
	ErrConfiguration = errors.New("invalid model configuration")
	// ErrEmptyCorpus is returned when the corpus yields no usable tokens.
	ErrEmptyCorpus = errors.New("corpus contains no usable tokens")
	// ErrUnknownStartWord is returned by Generate when the seed word is not in
	// the vocabulary. It is a request-level failure, not a model failure.
	ErrUnknownStartWord = errors.New("start word not in vocabulary")
	// ErrSnapshotNotFound is returned by Store.Load on a cache miss.
	ErrSnapshotNotFound = errors.New("model snapshot not found")
)

// ConfigError describes a load-time configuration problem. Load aborts on it.
type ConfigError struct {
	Field  string
	Value  int
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %d: %s", e.Field, e.Value, e.Reason)
}

// Is reports ErrConfiguration as a match so callers can test with errors.Is.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}
