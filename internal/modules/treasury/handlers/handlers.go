// Package handlers provides HTTP handlers for treasury inputs: scheduled
// rate-change events and dated capital flow events. Both feed the daily
// accrual simulation of the next forecast run.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/modules/treasury"
)

// Handler handles treasury input HTTP requests.
type Handler struct {
	repo *treasury.Repository
	log  zerolog.Logger
}

// NewHandler creates a new treasury handler.
func NewHandler(repo *treasury.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "treasury").Logger(),
	}
}

// HandleListRateEvents handles GET /api/treasury/rate-events
func (h *Handler) HandleListRateEvents(w http.ResponseWriter, r *http.Request) {
	rateEvents, err := h.repo.RateEvents()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list rate events")
		http.Error(w, "Failed to list rate events", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"events": rateEvents,
		"count":  len(rateEvents),
	}))
}

// HandleUpsertRateEvent handles POST /api/treasury/rate-events
func (h *Handler) HandleUpsertRateEvent(w http.ResponseWriter, r *http.Request) {
	var event treasury.RateEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := event.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	if err := h.repo.UpsertRateEvent(&event); err != nil {
		h.log.Error().Err(err).Str("event_id", event.ID).Msg("Failed to store rate event")
		http.Error(w, "Failed to store rate event", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(event))
}

// HandleDeleteRateEvent handles DELETE /api/treasury/rate-events/{id}
func (h *Handler) HandleDeleteRateEvent(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.repo.DeleteRateEvent(id); err != nil {
		h.log.Error().Err(err).Str("event_id", id).Msg("Failed to delete rate event")
		http.Error(w, "Failed to delete rate event", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{"deleted": id}))
}

// HandleListFundingEvents handles GET /api/treasury/funding-events
func (h *Handler) HandleListFundingEvents(w http.ResponseWriter, r *http.Request) {
	fundingEvents, err := h.repo.FundingEvents()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list funding events")
		http.Error(w, "Failed to list funding events", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"events": fundingEvents,
		"count":  len(fundingEvents),
	}))
}

// HandleUpsertFundingEvent handles POST /api/treasury/funding-events
func (h *Handler) HandleUpsertFundingEvent(w http.ResponseWriter, r *http.Request) {
	var event treasury.FundingEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := event.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	if err := h.repo.UpsertFundingEvent(&event); err != nil {
		h.log.Error().Err(err).Str("event_id", event.ID).Msg("Failed to store funding event")
		http.Error(w, "Failed to store funding event", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(event))
}

// HandleDeleteFundingEvent handles DELETE /api/treasury/funding-events/{id}
func (h *Handler) HandleDeleteFundingEvent(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.repo.DeleteFundingEvent(id); err != nil {
		h.log.Error().Err(err).Str("event_id", id).Msg("Failed to delete funding event")
		http.Error(w, "Failed to delete funding event", http.StatusInternalServerError)
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
