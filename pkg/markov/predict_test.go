package markov

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestNextTokensSingleLevel(t *testing.T) {
	// Context "x" is followed by "a" three times and by "b" once.
	m := modelFromStream(t, []string{"x", "a", "b"}, []int{0, 1, 0, 1, 0, 1, 0, 2}, 1)

	got := m.NextTokens([]string{"x"})
	expected := []Candidate{{Token: "a", Probability: 0.75}, {Token: "b", Probability: 0.25}}
	assertCandidates(t, got, expected)
}

func TestNextTokensSumsAllLevels(t *testing.T) {
	// "p q" is followed by r once; "q" alone is followed by r once and s twice.
	// Both levels carry equal weight: r = 1/2 + 1/2*1/3, s = 1/2*2/3.
	m := modelFromStream(t, []string{"p", "q", "r", "s"}, []int{0, 1, 2, 3, 1, 3, 3, 1, 3}, 2)

	got := m.NextTokens([]string{"p", "q"})
	expected := []Candidate{{Token: "r", Probability: 2.0 / 3}, {Token: "s", Probability: 1.0 / 3}}
	assertCandidates(t, got, expected)
}

func TestNextTokensDropsUnknownWords(t *testing.T) {
	m := modelFromStream(t, []string{"x", "a", "b"}, []int{0, 1, 0, 1, 0, 1, 0, 2}, 1)

	// Unknown words are dropped before the context is trimmed to the order.
	got := m.NextTokens([]string{"x", "nonsense"})
	expected := []Candidate{{Token: "a", Probability: 0.75}, {Token: "b", Probability: 0.25}}
	assertCandidates(t, got, expected)

	if got := m.NextTokens([]string{"nonsense"}); got != nil {
		t.Errorf("expected no candidates for an unknown-only context, got %v", got)
	}
}

func TestPredictSamplingFidelity(t *testing.T) {
	m := modelFromStream(t, []string{"x", "a", "b"}, []int{0, 1, 0, 1, 0, 1, 0, 2}, 1)
	rng := rand.New(rand.NewPCG(42, 42))

	const trials = 20000
	counts := make(map[string]int)
	for i := 0; i < trials; i++ {
		counts[m.Predict([]string{"x"}, rng)]++
	}

	if len(counts) != 2 {
		t.Fatalf("expected exactly two distinct predictions, got %v", counts)
	}
	assertFrequency(t, "a", counts["a"], trials, 0.75)
	assertFrequency(t, "b", counts["b"], trials, 0.25)
}

func TestPredictSamplingFidelityAcrossLevels(t *testing.T) {
	m := modelFromStream(t, []string{"p", "q", "r", "s"}, []int{0, 1, 2, 3, 1, 3, 3, 1, 3}, 2)
	rng := rand.New(rand.NewPCG(7, 7))

	const trials = 30000
	counts := make(map[string]int)
	for i := 0; i < trials; i++ {
		counts[m.Predict([]string{"p", "q"}, rng)]++
	}

	assertFrequency(t, "r", counts["r"], trials, 2.0/3)
	assertFrequency(t, "s", counts["s"], trials, 1.0/3)
}

func TestPredictFallback(t *testing.T) {
	// Nothing follows "b", so predictions after it come from the corpus:
	// a three times out of four, b once.
	m := modelFromStream(t, []string{"a", "b"}, []int{0, 0, 0, 1}, 1)
	rng := rand.New(rand.NewPCG(1, 2))

	if got := m.NextTokens([]string{"b"}); got != nil {
		t.Fatalf("expected no back-off candidates after 'b', got %v", got)
	}

	const trials = 20000
	counts := make(map[string]int)
	for i := 0; i < trials; i++ {
		counts[m.Predict([]string{"b"}, rng)]++
	}
	if len(counts) != 2 || counts[""] != 0 {
		t.Fatalf("fallback returned an invalid token: %v", counts)
	}
	assertFrequency(t, "a", counts["a"], trials, 0.75)
}

func TestPredictFallbackSkipsSentinels(t *testing.T) {
	// Positions holding Sentinel are never sampled by the fallback.
	m := modelFromStream(t, []string{"a", "b"}, []int{Sentinel, 0, 1, Sentinel, Sentinel, 1}, 1)
	rng := rand.New(rand.NewPCG(3, 4))

	for i := 0; i < 1000; i++ {
		got := m.Predict(nil, rng)
		if got != "a" && got != "b" {
			t.Fatalf("fallback returned %q", got)
		}
	}
}

func TestPredictNilRand(t *testing.T) {
	m := buildTestModel(t, scenarioCorpus, testConfig(2))
	for i := 0; i < 100; i++ {
		if got := m.Predict([]string{"juliet", "is"}, nil); got != "here" && got != "there" {
			t.Fatalf("Predict() = %q, want 'here' or 'there'", got)
		}
	}
}

func assertCandidates(t *testing.T, got, expected []Candidate) {
	t.Helper()
	if len(got) != len(expected) {
		t.Fatalf("expected %d candidates, got %v", len(expected), got)
	}
	for i := range expected {
		if got[i].Token != expected[i].Token || math.Abs(got[i].Probability-expected[i].Probability) > 1e-9 {
			t.Errorf("candidate %d: expected %+v, got %+v", i, expected[i], got[i])
		}
	}
}

func assertFrequency(t *testing.T, token string, count, trials int, want float64) {
	t.Helper()
	const tolerance = 0.02
	got := float64(count) / float64(trials)
	if math.Abs(got-want) > tolerance {
		t.Errorf("token %q sampled with frequency %.4f, want %.4f ± %.2f", token, got, want, tolerance)
	}
}
