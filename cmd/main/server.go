package main

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/CTAG07/sentence-simulator/pkg/markov"
)

// ModelState holds the model once it has finished loading. Handlers read it
// on every request; it is set once by the loader.
type ModelState struct {
	model    atomic.Pointer[markov.Model]
	loadedAt atomic.Int64
}

// Get returns the loaded model, or nil while it is still loading.
func (s *ModelState) Get() *markov.Model {
	return s.model.Load()
}

// Set publishes a loaded model to the handlers.
func (s *ModelState) Set(m *markov.Model) {
	s.loadedAt.Store(time.Now().Unix())
	s.model.Store(m)
}

// LoadedAt returns when the model was published, or the zero time.
func (s *ModelState) LoadedAt() time.Time {
	ts := s.loadedAt.Load()
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

// require writes a 503 and returns false if no model is loaded yet.
func (s *ModelState) require(w http.ResponseWriter) (*markov.Model, bool) {
	m := s.Get()
	if m == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Model is still loading")
		return nil, false
	}
	return m, true
}

type Server struct {
	config      *Config
	logger      *slog.Logger
	state       *ModelState
	generateAPI *GenerateAPI
	statsAPI    *StatsAPI
	serverAPI   *ServerAPI
	mux         *http.ServeMux
}

func NewServer(config *Config, logger *slog.Logger, state *ModelState) *Server {
	timeout := time.Duration(config.Server.RequestTimeoutMs) * time.Millisecond

	server := &Server{
		config:      config,
		logger:      logger,
		state:       state,
		generateAPI: NewGenerateAPI(state, config.Server.DefaultStartWord, timeout, logger),
		statsAPI:    NewStatsAPI(state, logger),
		serverAPI:   NewServerAPI(state, logger),
		mux:         http.NewServeMux(),
	}

	server.generateAPI.RegisterRoutes(server.mux)
	server.statsAPI.RegisterRoutes(server.mux)
	server.serverAPI.RegisterRoutes(server.mux)

	return server
}

// Handler returns the mux wrapped in the CORS and request logging middleware.
func (s *Server) Handler() http.Handler {
	return requestLogger(s.logger, corsMiddleware(s.config.Server.AllowedOrigins, s.mux))
}
