package main

import (
	"log/slog"
	"net/http"
	"time"
)

// ServerAPI holds the dependencies for the health and version handlers.
type ServerAPI struct {
	state  *ModelState
	logger *slog.Logger
}

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

type HealthStatus struct {
	Status   string     `json:"status"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}

// NewServerAPI creates a new instance of the ServerAPI.
func NewServerAPI(state *ModelState, logger *slog.Logger) *ServerAPI {
	return &ServerAPI{
		state:  state,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/health and /api/version endpoints.
func (a *ServerAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", a.handleHealthCheck)
	mux.HandleFunc("/api/version", a.handleVersion)
}

// handleHealthCheck answers 503 until the model has loaded.
func (a *ServerAPI) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if a.state.Get() == nil {
		respondWithJSON(w, http.StatusServiceUnavailable, HealthStatus{Status: "loading"})
		return
	}
	loadedAt := a.state.LoadedAt()
	respondWithJSON(w, http.StatusOK, HealthStatus{Status: "ok", LoadedAt: &loadedAt})
}

// handleVersion returns the application's build information.
func (a *ServerAPI) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	info := VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	}
	respondWithJSON(w, http.StatusOK, info)
}
