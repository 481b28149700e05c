// Package handlers provides HTTP handlers for product-cycle unit volumes,
// the third-party sell-through estimates the overlay model scales by capture
// rate and regional demographics.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/modules/overlay"
)

// Handler handles overlay volume HTTP requests.
type Handler struct {
	repo *overlay.Repository
	log  zerolog.Logger
}

// NewHandler creates a new overlay handler.
func NewHandler(repo *overlay.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "overlay").Logger(),
	}
}

type volumeRequest struct {
	Cycle    string  `json:"cycle"`
	Quarter  string  `json:"quarter"`
	TAMUnits float64 `json:"tam_units"`
	Source   string  `json:"source,omitempty"`
}

// HandleUpsertVolume handles POST /api/overlay/volumes
func (h *Handler) HandleUpsertVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Cycle == "" || req.Quarter == "" {
		http.Error(w, "Volume requires a cycle and a quarter", http.StatusBadRequest)
		return
	}
	if req.TAMUnits < 0 {
		http.Error(w, "TAM units must not be negative", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpsertVolume(req.Cycle, req.Quarter, req.TAMUnits, req.Source); err != nil {
		h.log.Error().Err(err).
			Str("cycle", req.Cycle).
			Str("quarter", req.Quarter).
			Msg("Failed to store unit volume")
		http.Error(w, "Failed to store unit volume", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(req))
}

// HandleGetVolumes handles GET /api/overlay/volumes/{cycle}
func (h *Handler) HandleGetVolumes(w http.ResponseWriter, r *http.Request, cycle string) {
	volumes, err := h.repo.Volumes(cycle)
	if err != nil {
		h.log.Error().Err(err).Str("cycle", cycle).Msg("Failed to load unit volumes")
		http.Error(w, "Failed to load unit volumes", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"cycle":   cycle,
		"volumes": volumes,
		"count":   len(volumes),
	}))
}

// HandleListCycles handles GET /api/overlay/cycles
func (h *Handler) HandleListCycles(w http.ResponseWriter, r *http.Request) {
	cycles, err := h.repo.Cycles()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list cycles")
		http.Error(w, "Failed to list cycles", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"cycles": cycles,
		"count":  len(cycles),
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
