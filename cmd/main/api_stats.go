package main

import (
	"log/slog"
	"net/http"
)

// StatsAPI holds the dependencies for the statistics handlers.
type StatsAPI struct {
	state  *ModelState
	logger *slog.Logger
}

func NewStatsAPI(state *ModelState, logger *slog.Logger) *StatsAPI {
	return &StatsAPI{
		state:  state,
		logger: logger,
	}
}

func (s *StatsAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/stats", s.handleStats)
}

func (s *StatsAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	m, ok := s.state.require(w)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, m.Stats())
}
