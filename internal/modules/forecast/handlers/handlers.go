// Package handlers provides HTTP handlers for forecast run operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/modules/assumptions"
	"github.com/attikos/foresight/internal/modules/forecast"
	"github.com/attikos/foresight/internal/modules/statement"
)

// Handler handles forecast run HTTP requests.
type Handler struct {
	service        *forecast.Service
	runs           *forecast.Repository
	sets           *assumptions.Repository
	defaultHorizon int
	log            zerolog.Logger
}

// NewHandler creates a new forecast handler. defaultHorizon is the number
// of quarters a run projects when the request does not say; zero defers
// to the active assumption set.
func NewHandler(
	service *forecast.Service,
	runs *forecast.Repository,
	sets *assumptions.Repository,
	defaultHorizon int,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:        service,
		runs:           runs,
		sets:           sets,
		defaultHorizon: defaultHorizon,
		log:            log.With().Str("handler", "forecast").Logger(),
	}
}

type createRunRequest struct {
	// AssumptionSetID activates the named set before executing. Empty runs
	// against whichever set is already active.
	AssumptionSetID string `json:"assumption_set_id,omitempty"`
	// Quarters overrides the forecast horizon for this run. Zero falls
	// back to the configured default, then the assumption set.
	Quarters int `json:"quarters,omitempty"`
}

// HandleCreateRun handles POST /api/forecast/runs
func (h *Handler) HandleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	if req.Quarters < 0 {
		http.Error(w, "quarters must be positive", http.StatusBadRequest)
		return
	}

	if req.AssumptionSetID != "" {
		if err := h.sets.Activate(req.AssumptionSetID); err != nil {
			h.log.Error().Err(err).Str("set_id", req.AssumptionSetID).Msg("Failed to activate assumption set")
			http.Error(w, "Assumption set not found", http.StatusNotFound)
			return
		}
	}

	quarters := req.Quarters
	if quarters == 0 {
		quarters = h.defaultHorizon
	}

	run, err := h.service.Execute(quarters)
	if err != nil {
		h.log.Error().Err(err).Msg("Forecast run failed")
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.writeJSON(w, http.StatusCreated, envelope(run))
}

// HandleListRuns handles GET /api/forecast/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := h.runs.Runs(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	}))
}

// HandleGetRun handles GET /api/forecast/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request, id string) {
	run, err := h.runs.Run(id)
	if err != nil {
		if errors.Is(err, forecast.ErrRunNotFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to load run")
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(run))
}

// HandleGetReport handles GET /api/forecast/runs/{id}/report
func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request, id string) {
	run, err := h.runs.Run(id)
	if err != nil {
		if errors.Is(err, forecast.ErrRunNotFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to load run")
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}
	if run.Status != forecast.StatusCompleted {
		http.Error(w, "Run did not complete, no report available", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(statement.Render(run.Statements))); err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to write report")
	}
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
