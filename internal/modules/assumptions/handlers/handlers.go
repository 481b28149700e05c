// Package handlers provides HTTP handlers for versioned assumption sets.
// Sets are imported as YAML documents, listed with their version metadata,
// and activated one at a time; the active set drives every forecast run.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/events"
	"github.com/attikos/foresight/internal/modules/assumptions"
)

const maxImportBytes = 1 << 20

// Handler handles assumption set HTTP requests.
type Handler struct {
	repo   *assumptions.Repository
	events *events.Manager
	log    zerolog.Logger
}

// NewHandler creates a new assumptions handler.
func NewHandler(repo *assumptions.Repository, eventManager *events.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		events: eventManager,
		log:    log.With().Str("handler", "assumptions").Logger(),
	}
}

// HandleListSets handles GET /api/assumptions/sets
func (h *Handler) HandleListSets(w http.ResponseWriter, r *http.Request) {
	sets, err := h.repo.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list assumption sets")
		http.Error(w, "Failed to list assumption sets", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"sets":  sets,
		"count": len(sets),
	}))
}

// HandleGetSet handles GET /api/assumptions/sets/{id}
func (h *Handler) HandleGetSet(w http.ResponseWriter, r *http.Request, id string) {
	set, err := h.repo.Get(id)
	if err != nil {
		http.Error(w, "Assumption set not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(set))
}

// HandleGetPayload handles GET /api/assumptions/sets/{id}/payload
// It returns the original YAML document the set was imported from.
func (h *Handler) HandleGetPayload(w http.ResponseWriter, r *http.Request, id string) {
	payload, err := h.repo.Payload(id)
	if err != nil {
		http.Error(w, "Assumption set not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		h.log.Error().Err(err).Str("set_id", id).Msg("Failed to write payload")
	}
}

// HandleActivateSet handles POST /api/assumptions/sets/{id}/activate
func (h *Handler) HandleActivateSet(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.repo.Activate(id); err != nil {
		http.Error(w, "Assumption set not found", http.StatusNotFound)
		return
	}

	h.events.Emit(events.AssumptionsChanged, "assumptions", map[string]interface{}{
		"set_id": id,
		"action": "activated",
	})
	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"id":     id,
		"active": true,
	}))
}

// HandleImport handles POST /api/assumptions/import
// The body is a YAML assumption document; the new set starts inactive unless
// ?activate=true.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil || len(payload) == 0 {
		http.Error(w, "Empty import body", http.StatusBadRequest)
		return
	}

	set, err := assumptions.Parse(payload)
	if err != nil {
		h.log.Warn().Err(err).Msg("Rejected assumption import")
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if err := h.repo.Create(set, payload); err != nil {
		h.log.Error().Err(err).Str("name", set.Name).Msg("Failed to store assumption set")
		http.Error(w, "Failed to store assumption set", http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("activate") == "true" {
		if err := h.repo.Activate(set.ID); err != nil {
			h.log.Error().Err(err).Str("set_id", set.ID).Msg("Failed to activate imported set")
			http.Error(w, "Failed to activate imported set", http.StatusInternalServerError)
			return
		}
		set.Active = true
	}

	h.events.Emit(events.AssumptionsChanged, "assumptions", map[string]interface{}{
		"set_id":  set.ID,
		"name":    set.Name,
		"version": set.Version,
		"action":  "imported",
	})
	h.log.Info().
		Str("set_id", set.ID).
		Str("name", set.Name).
		Int("version", set.Version).
		Msg("Assumption set imported")

	h.writeJSON(w, http.StatusCreated, envelope(set))
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
