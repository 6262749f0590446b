// Package handlers provides HTTP handlers for benchmark operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/qbench/internal/modules/benchmarks"
)

// Handler handles benchmark HTTP requests
type Handler struct {
	runner *benchmarks.Runner
	repo   *benchmarks.Repository
	log    zerolog.Logger
}

// NewHandler creates a new benchmark handler
func NewHandler(
	runner *benchmarks.Runner,
	repo *benchmarks.Repository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		runner: runner,
		repo:   repo,
		log:    log.With().Str("handler", "benchmarks").Logger(),
	}
}

// HandleRun handles POST /api/benchmarks/run
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var cfg benchmarks.RunConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Iterations == 0 {
		cfg.Iterations = 100
	}

	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.runner.Run(cfg)
	if err != nil {
		h.log.Error().Err(err).Msg("Benchmark run failed")
		http.Error(w, "Benchmark run failed", http.StatusInternalServerError)
		return
	}

	if err := h.repo.Save(result); err != nil {
		h.log.Error().Err(err).Str("id", result.ID).Msg("Failed to persist benchmark run")
		http.Error(w, "Failed to persist benchmark run", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleList handles GET /api/benchmarks
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	results, err := h.repo.List(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list benchmark runs")
		http.Error(w, "Failed to list benchmark runs", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"runs":  results,
			"count": len(results),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGet handles GET /api/benchmarks/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.repo.Get(id)
	if err != nil {
		http.Error(w, "Benchmark run not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
