package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/CTAG07/sentence-simulator/pkg/markov"
)

// GenerateAPI holds the dependencies for the sentence generation handlers.
type GenerateAPI struct {
	state            *ModelState
	defaultStartWord string
	timeout          time.Duration
	logger           *slog.Logger
}

type GenerateRequest struct {
	StartWord string `json:"start_word"`
}

type GenerateResponse struct {
	Sentence string `json:"sentence"`
}

type NextRequest struct {
	Words []string `json:"words"`
}

type NextResponse struct {
	Candidates []markov.Candidate `json:"candidates"`
	// Fallback is set when no context matched and the next token would be
	// drawn from the whole corpus.
	Fallback bool `json:"fallback"`
}

// NewGenerateAPI creates a new instance of the GenerateAPI.
func NewGenerateAPI(state *ModelState, defaultStartWord string, timeout time.Duration, logger *slog.Logger) *GenerateAPI {
	return &GenerateAPI{
		state:            state,
		defaultStartWord: normalizeWord(defaultStartWord),
		timeout:          timeout,
		logger:           logger,
	}
}

// RegisterRoutes sets up the routing for the generation endpoints.
func (a *GenerateAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", a.handleRoot)
	mux.HandleFunc("/generate", a.handleGenerate)
	mux.HandleFunc("/api/next", a.handleNext)
}

func normalizeWord(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}

// decodeBody decodes a JSON request body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// handleRoot answers the liveness probe at the root path.
func (a *GenerateAPI) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondWithError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Sentence simulator API is running",
	})
}

// handleGenerate builds one sentence from the requested start word.
func (a *GenerateAPI) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req GenerateRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	m, ok := a.state.require(w)
	if !ok {
		return
	}

	word := normalizeWord(req.StartWord)
	if word == "" {
		word = a.defaultStartWord
	}

	ctx := r.Context()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	sentence, err := m.Generate(ctx, word)
	if err != nil {
		if errors.Is(err, markov.ErrUnknownStartWord) {
			respondWithError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Start word %q is not in the vocabulary", word))
			return
		}
		a.logger.Error("Failed to generate sentence", "start_word", word, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate sentence: %v", err))
		return
	}

	respondWithJSON(w, http.StatusOK, GenerateResponse{Sentence: sentence})
}

// handleNext returns the distribution the next token would be drawn from.
func (a *GenerateAPI) handleNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req NextRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	m, ok := a.state.require(w)
	if !ok {
		return
	}

	words := make([]string, 0, len(req.Words))
	for _, word := range req.Words {
		if word = normalizeWord(word); word != "" {
			words = append(words, word)
		}
	}

	candidates := m.NextTokens(words)
	resp := NextResponse{Candidates: candidates, Fallback: len(candidates) == 0}
	if resp.Candidates == nil {
		resp.Candidates = []markov.Candidate{}
	}
	respondWithJSON(w, http.StatusOK, resp)
}
