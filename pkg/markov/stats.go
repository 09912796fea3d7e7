package markov

// ModelStats holds aggregated statistics for a loaded model.
type ModelStats struct {
	Order         int   `json:"order"`          // Context width (mlag)
	VocabSize     int   `json:"vocab_size"`     // Tokens kept in the vocabulary
	StreamLength  int   `json:"stream_length"`  // Tokens in the corpus after normalization
	UnknownTokens int   `json:"unknown_tokens"` // Stream positions holding Sentinel
	TableRows     int   `json:"table_rows"`     // Transition rows kept after filtering
	Contexts      []int `json:"contexts"`       // Distinct contexts per back-off length, index 0 is length 1
	HasTerminator bool  `json:"has_terminator"` // Whether "." made it into the vocabulary
}

// Stats returns a snapshot of the model's statistics.
func (m *Model) Stats() ModelStats {
	contexts := make([]int, m.cfg.Order)
	for i := range contexts {
		contexts[i] = m.table.Contexts(i + 1)
	}
	return ModelStats{
		Order:         m.cfg.Order,
		VocabSize:     m.vocab.Len(),
		StreamLength:  len(m.stream),
		UnknownTokens: len(m.stream) - len(m.corpus),
		TableRows:     m.table.Len(),
		Contexts:      contexts,
		HasTerminator: m.terminator != Sentinel,
	}
}
