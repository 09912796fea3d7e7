package markov

// Config holds the load-time settings of a Model.
type Config struct {
	// StartLine is the number of leading corpus lines to discard (front matter).
	StartLine int `json:"start_line"`

	// EndLine is the exclusive index of the last corpus line kept (back matter
	// is discarded). Zero keeps everything through the end of the input.
	EndLine int `json:"end_line"`

	// Order is the number of preceding tokens used as context (mlag).
	Order int `json:"order"`

	// VocabSize is the number of most frequent tokens kept (topK). Every other
	// token is mapped to Sentinel.
	VocabSize int `json:"vocab_size"`

	// MaxLength caps the number of tokens generated after the start word.
	MaxLength int `json:"max_length"`
}

// DefaultConfig returns the settings used for the bundled Shakespeare corpus.
func DefaultConfig() Config {
	return Config{
		StartLine: 83,
		EndLine:   196043,
		Order:     4,
		VocabSize: 1000,
		MaxLength: 50,
	}
}

// Validate checks the settings that can be checked without a corpus.
func (c Config) Validate() error {
	if c.VocabSize <= 0 {
		return &ConfigError{Field: "vocab_size", Value: c.VocabSize, Reason: "must be positive"}
	}
	if c.Order <= 0 {
		return &ConfigError{Field: "order", Value: c.Order, Reason: "must be positive"}
	}
	if c.MaxLength <= 0 {
		return &ConfigError{Field: "max_length", Value: c.MaxLength, Reason: "must be positive"}
	}
	if c.StartLine < 0 {
		return &ConfigError{Field: "start_line", Value: c.StartLine, Reason: "must not be negative"}
	}
	if c.EndLine < 0 {
		return &ConfigError{Field: "end_line", Value: c.EndLine, Reason: "must not be negative"}
	}
	if c.EndLine != 0 && c.EndLine <= c.StartLine {
		return &ConfigError{Field: "end_line", Value: c.EndLine, Reason: "must be greater than start_line"}
	}
	return nil
}
