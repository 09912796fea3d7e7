package markov

import (
	"bufio"
	"io"
	"regexp"
	"strings"
	"unicode"
)

// Punctuation lists the marks that are split into standalone tokens and that
// lose their leading space when a sentence is joined back together.
const Punctuation = ",.;!:?"

// Terminator is the token that ends a generated sentence.
const Terminator = "."

// maxLineSize bounds a single corpus line read by the scanner.
const maxLineSize = 1 << 20

// CorpusTokenizer turns raw corpus text into normalized tokens. It trims the
// corpus to a configured line range, strips bracketed stage directions,
// splits punctuation into its own tokens, drops speaker headers and numbers,
// and case-folds what is left. Its behavior can be customized with Options.
type CorpusTokenizer struct {
	startLine    int
	endLine      int
	bracketRegex *regexp.Regexp
	stripChars   string
	keepCapitals map[string]struct{}
	spacer       *strings.Replacer
	joiner       *strings.Replacer
}

// Option configures a CorpusTokenizer.
type Option func(*CorpusTokenizer)

// WithLineRange keeps only lines [start, end) of the input, counting from zero.
// An end of 0 keeps every line from start onwards.
// Default: 0, 0
func WithLineRange(start, end int) Option {
	return func(t *CorpusTokenizer) {
		t.startLine = start
		t.endLine = end
	}
}

// WithBracketRegex sets the regex used to remove stage directions.
// Default: `\[.*?\]`
func WithBracketRegex(expr string) Option {
	return func(t *CorpusTokenizer) {
		t.bracketRegex = regexp.MustCompile(expr)
	}
}

// WithKeptCapitals sets the all-caps words that are kept instead of being
// dropped as speaker names.
// Default: "I", "A"
func WithKeptCapitals(words ...string) Option {
	return func(t *CorpusTokenizer) {
		t.keepCapitals = make(map[string]struct{}, len(words))
		for _, w := range words {
			t.keepCapitals[w] = struct{}{}
		}
	}
}

// NewCorpusTokenizer creates a tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewCorpusTokenizer(opts ...Option) *CorpusTokenizer {
	spaced := make([]string, 0, 2*len(Punctuation))
	joined := make([]string, 0, 2*len(Punctuation))
	for _, p := range Punctuation {
		spaced = append(spaced, string(p), " "+string(p)+" ")
		joined = append(joined, " "+string(p), string(p))
	}

	t := &CorpusTokenizer{
		// Non-greedy, so "[a] b [c]" loses both directions but keeps "b".
		// Nested brackets are not supported.
		bracketRegex: regexp.MustCompile(`\[.*?\]`),
		stripChars:   "_-",
		keepCapitals: map[string]struct{}{"I": {}, "A": {}},
		spacer:       strings.NewReplacer(spaced...),
		joiner:       strings.NewReplacer(joined...),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Tokenize reads the whole corpus from r, keeps the configured line range and
// returns the normalized token sequence.
func (t *CorpusTokenizer) Tokenize(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var blob strings.Builder
	line := 0
	for scanner.Scan() {
		if t.endLine > 0 && line >= t.endLine {
			break
		}
		if line >= t.startLine {
			if line > t.startLine {
				blob.WriteByte(' ')
			}
			blob.WriteString(strings.TrimSpace(scanner.Text()))
		}
		line++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return t.Normalize(blob.String()), nil
}

// Normalize tokenizes an already trimmed text blob.
func (t *CorpusTokenizer) Normalize(text string) []string {
	text = t.bracketRegex.ReplaceAllString(text, "")
	text = t.spacer.Replace(text)

	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if tok, ok := t.clean(w); ok {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// clean applies the per-word rules and reports whether the word survives.
func (t *CorpusTokenizer) clean(w string) (string, bool) {
	w = strings.Map(func(r rune) rune {
		if strings.ContainsRune(t.stripChars, r) {
			return -1
		}
		return r
	}, w)
	if w == "" {
		return "", false
	}
	if isAllUpper(w) {
		if _, keep := t.keepCapitals[w]; !keep {
			return "", false
		}
	}
	if isNumeric(w) {
		return "", false
	}
	return strings.ToLower(w), true
}

// Join reassembles tokens into a sentence, removing the space before each
// punctuation mark.
func (t *CorpusTokenizer) Join(tokens []string) string {
	return t.joiner.Replace(strings.Join(tokens, " "))
}

// isAllUpper reports whether w has at least one cased letter and no lower-case
// ones, so "ROMEO" and "O'ER" are upper but "'" is not.
func isAllUpper(w string) bool {
	cased := false
	for _, r := range w {
		if unicode.IsLower(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func isNumeric(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return w != ""
}
