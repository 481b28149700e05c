// Package handlers provides HTTP handlers for calibration results: backtest
// sweeps, stored accuracy scores, and partition reconciliation warnings.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/modules/calibration"
)

// Handler handles calibration HTTP requests.
type Handler struct {
	service *calibration.Service
	log     zerolog.Logger
}

// NewHandler creates a new calibration handler.
func NewHandler(service *calibration.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "calibration").Logger(),
	}
}

// HandleBacktest handles POST /api/calibration/backtest
// It runs a sweep immediately rather than waiting for the nightly job.
func (h *Handler) HandleBacktest(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Backtest()
	if err != nil {
		h.log.Error().Err(err).Msg("Backtest sweep failed")
		http.Error(w, "Backtest sweep failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(result))
}

// HandleScores handles GET /api/calibration/scores
func (h *Handler) HandleScores(w http.ResponseWriter, r *http.Request) {
	scores, err := h.service.LatestScores()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load calibration scores")
		http.Error(w, "Failed to load calibration scores", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"scores": scores,
		"count":  len(scores),
	}))
}

// HandleWarnings handles GET /api/calibration/warnings
func (h *Handler) HandleWarnings(w http.ResponseWriter, r *http.Request) {
	warnings, err := h.service.Warnings()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to run partition check")
		http.Error(w, "Failed to run partition check", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"warnings": warnings,
		"count":    len(warnings),
	}))
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
