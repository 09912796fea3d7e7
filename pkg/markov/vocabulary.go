package markov

import "sort"

// Sentinel marks a token stream position whose token is not in the vocabulary.
const Sentinel = -1

// Vocabulary is the ranked set of the most frequent corpus tokens. Ids are
// dense, assigned in descending frequency with ties broken by first
// appearance. It is immutable once built.
type Vocabulary struct {
	tokens []string
	ids    map[string]int
}

// BuildVocabulary ranks tokens by frequency, keeps the topK most frequent and
// maps the whole sequence to ids, using Sentinel for dropped tokens.
func BuildVocabulary(tokens []string, topK int) (*Vocabulary, []int, error) {
	if topK <= 0 {
		return nil, nil, &ConfigError{Field: "vocab_size", Value: topK, Reason: "must be positive"}
	}

	counts := make(map[string]int)
	var seen []string // distinct tokens in first-appearance order
	for _, tok := range tokens {
		if counts[tok] == 0 {
			seen = append(seen, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(seen, func(i, j int) bool {
		return counts[seen[i]] > counts[seen[j]]
	})
	if len(seen) > topK {
		seen = seen[:topK]
	}

	vocab := newVocabulary(seen)
	return vocab, vocab.Encode(tokens), nil
}

// newVocabulary indexes an already ranked token list.
func newVocabulary(ranked []string) *Vocabulary {
	v := &Vocabulary{
		tokens: ranked,
		ids:    make(map[string]int, len(ranked)),
	}
	for id, tok := range ranked {
		v.ids[tok] = id
	}
	return v
}

// Len returns the number of tokens in the vocabulary.
func (v *Vocabulary) Len() int {
	return len(v.tokens)
}

// ID looks up a token and reports whether it is in the vocabulary.
func (v *Vocabulary) ID(token string) (int, bool) {
	id, ok := v.ids[token]
	return id, ok
}

// Token returns the text for an id. It returns false for Sentinel or any id
// outside the vocabulary.
func (v *Vocabulary) Token(id int) (string, bool) {
	if id < 0 || id >= len(v.tokens) {
		return "", false
	}
	return v.tokens[id], true
}

// Tokens returns the ranked token list. The slice must not be modified.
func (v *Vocabulary) Tokens() []string {
	return v.tokens
}

// Encode maps tokens to ids, using Sentinel for unknown tokens.
func (v *Vocabulary) Encode(tokens []string) []int {
	stream := make([]int, len(tokens))
	for i, tok := range tokens {
		if id, ok := v.ids[tok]; ok {
			stream[i] = id
		} else {
			stream[i] = Sentinel
		}
	}
	return stream
}
