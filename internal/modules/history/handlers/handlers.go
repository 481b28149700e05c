// Package handlers provides HTTP handlers for historical actuals: the fiscal
// calendar, regional and consolidated filings, liquidity anchors, and daily
// price bars. These are the write paths that load a company's history before
// the first forecast runs.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/domain"
	"github.com/attikos/foresight/internal/events"
	"github.com/attikos/foresight/internal/modules/history"
)

// RegionSource supplies the configured reporting regions. Regions live in
// model.db next to the assumption sets, not in history.db.
type RegionSource interface {
	Regions() ([]domain.Region, error)
	UpsertRegion(region domain.Region) error
}

// Handler handles historical data HTTP requests.
type Handler struct {
	repo    *history.Repository
	regions RegionSource
	events  *events.Manager
	log     zerolog.Logger
}

// NewHandler creates a new history handler.
func NewHandler(
	repo *history.Repository,
	regions RegionSource,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		repo:    repo,
		regions: regions,
		events:  eventManager,
		log:     log.With().Str("handler", "history").Logger(),
	}
}

// HandleListQuarters handles GET /api/history/quarters
func (h *Handler) HandleListQuarters(w http.ResponseWriter, r *http.Request) {
	cal, err := h.repo.Calendar()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load fiscal calendar")
		http.Error(w, "Failed to load fiscal calendar", http.StatusInternalServerError)
		return
	}

	quarters := cal.Quarters()
	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"quarters": quarters,
		"count":    len(quarters),
	}))
}

// HandleUpsertQuarter handles POST /api/history/quarters
func (h *Handler) HandleUpsertQuarter(w http.ResponseWriter, r *http.Request) {
	var q domain.FiscalQuarter
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if q.Year < 1990 || q.Quarter < 1 || q.Quarter > 4 || q.EndDate.IsZero() {
		http.Error(w, "Quarter requires year, quarter 1-4 and end_date", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpsertQuarter(q); err != nil {
		h.log.Error().Err(err).Str("quarter", q.Key()).Msg("Failed to store quarter")
		http.Error(w, "Failed to store quarter", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(q))
}

// HandleListRegions handles GET /api/history/regions
func (h *Handler) HandleListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.regions.Regions()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list regions")
		http.Error(w, "Failed to list regions", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"regions": regions,
		"count":   len(regions),
	}))
}

// HandleUpsertRegion handles POST /api/history/regions
func (h *Handler) HandleUpsertRegion(w http.ResponseWriter, r *http.Request) {
	var region domain.Region
	if err := json.NewDecoder(r.Body).Decode(&region); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if region.Code == "" {
		http.Error(w, "Region requires a code", http.StatusBadRequest)
		return
	}

	if err := h.regions.UpsertRegion(region); err != nil {
		h.log.Error().Err(err).Str("region", string(region.Code)).Msg("Failed to store region")
		http.Error(w, "Failed to store region", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(region))
}

// HandleGetRegional handles GET /api/history/regional/{region}
func (h *Handler) HandleGetRegional(w http.ResponseWriter, r *http.Request, region string) {
	rows, err := h.repo.RegionalHistory(domain.RegionCode(region))
	if err != nil {
		h.log.Error().Err(err).Str("region", region).Msg("Failed to load regional history")
		http.Error(w, "Failed to load regional history", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"region":   region,
		"quarters": rows,
		"count":    len(rows),
	}))
}

// HandleUpsertRegional handles POST /api/history/regional
func (h *Handler) HandleUpsertRegional(w http.ResponseWriter, r *http.Request) {
	var f domain.QuarterFinancials
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if f.Region == "" || f.Quarter.IsZero() {
		http.Error(w, "Row requires a region and a quarter", http.StatusBadRequest)
		return
	}
	if f.Status == "" {
		f.Status = domain.StatusReported
	}

	if err := h.repo.UpsertRegionalFinancials(f); err != nil {
		h.log.Error().Err(err).
			Str("region", string(f.Region)).
			Str("quarter", f.Quarter.Key()).
			Msg("Failed to store regional financials")
		http.Error(w, "Failed to store regional financials", http.StatusInternalServerError)
		return
	}

	h.events.Emit(events.HistoryImported, "history", map[string]interface{}{
		"region":  string(f.Region),
		"quarter": f.Quarter.Key(),
	})
	h.writeJSON(w, http.StatusOK, envelope(f))
}

// HandleGetConsolidated handles GET /api/history/consolidated/{quarter}
func (h *Handler) HandleGetConsolidated(w http.ResponseWriter, r *http.Request, quarterKey string) {
	row, err := h.repo.Consolidated(quarterKey)
	if err != nil {
		if errors.Is(err, history.ErrMissingQuarter) {
			http.Error(w, "No consolidated row for quarter", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("quarter", quarterKey).Msg("Failed to load consolidated row")
		http.Error(w, "Failed to load consolidated row", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(row))
}

// HandleUpsertConsolidated handles POST /api/history/consolidated
func (h *Handler) HandleUpsertConsolidated(w http.ResponseWriter, r *http.Request) {
	var row history.ConsolidatedRow
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if row.Quarter == "" {
		http.Error(w, "Row requires a quarter", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpsertConsolidated(row); err != nil {
		h.log.Error().Err(err).Str("quarter", row.Quarter).Msg("Failed to store consolidated row")
		http.Error(w, "Failed to store consolidated row", http.StatusInternalServerError)
		return
	}

	h.events.Emit(events.HistoryImported, "history", map[string]interface{}{
		"quarter":      row.Quarter,
		"consolidated": true,
	})
	h.writeJSON(w, http.StatusOK, envelope(row))
}

type anchorRequest struct {
	Quarter  string   `json:"quarter"`
	Amount   float64  `json:"amount"`
	Interest *float64 `json:"interest,omitempty"`
}

// HandleUpsertAnchor handles POST /api/history/anchors
func (h *Handler) HandleUpsertAnchor(w http.ResponseWriter, r *http.Request) {
	var req anchorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Quarter == "" {
		http.Error(w, "Anchor requires a quarter", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpsertLiquidityAnchor(req.Quarter, req.Amount); err != nil {
		h.log.Error().Err(err).Str("quarter", req.Quarter).Msg("Failed to store liquidity anchor")
		http.Error(w, "Failed to store liquidity anchor", http.StatusInternalServerError)
		return
	}
	if req.Interest != nil {
		if err := h.repo.UpsertReportedInterest(req.Quarter, *req.Interest); err != nil {
			h.log.Error().Err(err).Str("quarter", req.Quarter).Msg("Failed to store reported interest")
			http.Error(w, "Failed to store reported interest", http.StatusInternalServerError)
			return
		}
	}

	h.writeJSON(w, http.StatusOK, envelope(req))
}

// HandleListAnchors handles GET /api/history/anchors
func (h *Handler) HandleListAnchors(w http.ResponseWriter, r *http.Request) {
	anchors, err := h.repo.LiquidityAnchors()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load liquidity anchors")
		http.Error(w, "Failed to load liquidity anchors", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"anchors": anchors,
		"count":   len(anchors),
	}))
}

type pricesRequest struct {
	Bars []history.DailyBar `json:"bars"`
}

// HandleImportPrices handles POST /api/history/prices/{symbol}
func (h *Handler) HandleImportPrices(w http.ResponseWriter, r *http.Request, symbol string) {
	var req pricesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Bars) == 0 {
		http.Error(w, "No bars supplied", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpsertDailyBars(symbol, req.Bars); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to store daily bars")
		http.Error(w, "Failed to store daily bars", http.StatusInternalServerError)
		return
	}

	h.events.Emit(events.PricesImported, "history", map[string]interface{}{
		"symbol": symbol,
		"bars":   len(req.Bars),
	})
	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"symbol": symbol,
		"stored": len(req.Bars),
	}))
}

// HandleGetPrices handles GET /api/history/prices/{symbol}
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request, symbol string) {
	from, to, err := parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	bars, err := h.repo.PricesBetween(symbol, from, to)
	if err != nil {
		if errors.Is(err, history.ErrNoPrices) {
			http.Error(w, "No prices for symbol in range", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to load prices")
		http.Error(w, "Failed to load prices", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"symbol": symbol,
		"bars":   bars,
		"count":  len(bars),
	}))
}

// parseRange reads from/to query dates, defaulting to the last year.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from, to := now.AddDate(-1, 0, 0), now
	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.Parse("2006-01-02", v); err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from date, want YYYY-MM-DD")
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.Parse("2006-01-02", v); err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to date, want YYYY-MM-DD")
		}
	}
	return from, to, nil
}

// HandlePartitionCheck handles GET /api/history/partition
func (h *Handler) HandlePartitionCheck(w http.ResponseWriter, r *http.Request) {
	warnings, err := h.repo.CheckAllPartitions()
	if err != nil {
		h.log.Error().Err(err).Msg("Partition check failed")
		http.Error(w, "Partition check failed", http.StatusInternalServerError)
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
