// Package handlers provides HTTP handlers for asset purchase programs, the
// accumulation windows the mark-to-market component schedules and values.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/modules/holdings"
)

// Handler handles purchase program HTTP requests.
type Handler struct {
	repo *holdings.Repository
	log  zerolog.Logger
}

// NewHandler creates a new holdings handler.
func NewHandler(repo *holdings.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "holdings").Logger(),
	}
}

// HandleListPrograms handles GET /api/holdings/programs
func (h *Handler) HandleListPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := h.repo.Programs()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list purchase programs")
		http.Error(w, "Failed to list purchase programs", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"programs": programs,
		"count":    len(programs),
	}))
}

// HandleUpsertProgram handles POST /api/holdings/programs
func (h *Handler) HandleUpsertProgram(w http.ResponseWriter, r *http.Request) {
	var program holdings.Program
	if err := json.NewDecoder(r.Body).Decode(&program); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := program.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.repo.UpsertProgram(program)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", program.Symbol).Msg("Failed to store purchase program")
		http.Error(w, "Failed to store purchase program", http.StatusInternalServerError)
		return
	}
	program.ID = id

	h.writeJSON(w, http.StatusOK, envelope(program))
}

// HandleDeleteProgram handles DELETE /api/holdings/programs/{id}
func (h *Handler) HandleDeleteProgram(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.repo.DeleteProgram(id); err != nil {
		h.log.Error().Err(err).Str("program_id", id).Msg("Failed to delete purchase program")
		http.Error(w, "Failed to delete purchase program", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{"deleted": id}))
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
