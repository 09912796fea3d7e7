package markov

import (
	"math/rand/v2"
	"sort"
)

// Candidate is one possible next token and its probability under the
// back-off distribution.
type Candidate struct {
	Token       string  `json:"token"`
	Probability float64 `json:"probability"`
}

// newRand returns an independently seeded generator for a single call.
func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// contextIDs maps recent words to ids, dropping unknown words, and keeps the
// trailing Order() ids.
func (m *Model) contextIDs(recent []string) []int {
	key := make([]int, 0, len(recent))
	for _, w := range recent {
		if id, ok := m.vocab.ID(w); ok {
			key = append(key, id)
		}
	}
	if len(key) > m.cfg.Order {
		key = key[len(key)-m.cfg.Order:]
	}
	return key
}

// matchLevels returns the targets matched at every back-off level, longest
// context first. All levels are tried; a match at a long context does not
// suppress the shorter ones.
func (m *Model) matchLevels(key []int) [][]int {
	var levels [][]int
	for i := len(key); i >= 1; i-- {
		if targets := m.table.Targets(key[len(key)-i:]); len(targets) > 0 {
			levels = append(levels, targets)
		}
	}
	return levels
}

// Predict samples the next token after recent. Words missing from the
// vocabulary are ignored. If no context suffix matches, the token is drawn from
// the whole corpus, which weights it by corpus frequency. A nil rng uses a
// fresh per-call generator.
func (m *Model) Predict(recent []string, rng *rand.Rand) string {
	if rng == nil {
		rng = newRand()
	}
	text, _ := m.vocab.Token(m.predictID(m.contextIDs(recent), rng))
	return text
}

// predictID draws one id for a context key that is already trailing-trimmed.
//
// Every matched level carries a total weight of 1, split evenly across its
// rows, so picking a level uniformly and then one of its rows uniformly draws
// from exactly the normalized pool of 1/n weights.
func (m *Model) predictID(key []int, rng *rand.Rand) int {
	levels := m.matchLevels(key)
	if len(levels) == 0 {
		return m.corpus[rng.IntN(len(m.corpus))]
	}
	targets := levels[rng.IntN(len(levels))]
	return targets[rng.IntN(len(targets))]
}

// NextTokens returns the distribution Predict samples from for recent, sorted
// by descending probability. It returns nil when Predict would fall back to
// corpus sampling.
func (m *Model) NextTokens(recent []string) []Candidate {
	levels := m.matchLevels(m.contextIDs(recent))
	if len(levels) == 0 {
		return nil
	}

	weights := make(map[int]float64)
	for _, targets := range levels {
		w := 1 / float64(len(targets)*len(levels))
		for _, id := range targets {
			weights[id] += w
		}
	}

	ids := make([]int, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if weights[ids[i]] != weights[ids[j]] {
			return weights[ids[i]] > weights[ids[j]]
		}
		return ids[i] < ids[j]
	})

	candidates := make([]Candidate, len(ids))
	for i, id := range ids {
		text, _ := m.vocab.Token(id)
		candidates[i] = Candidate{Token: text, Probability: weights[id]}
	}
	return candidates
}
