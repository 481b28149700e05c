package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all historical data routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/history", func(r chi.Router) {
		r.Get("/quarters", h.HandleListQuarters)
		r.Post("/quarters", h.HandleUpsertQuarter)

		r.Get("/regions", h.HandleListRegions)
		r.Post("/regions", h.HandleUpsertRegion)

		r.Post("/regional", h.HandleUpsertRegional)
		r.Get("/regional/{region}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetRegional(w, r, chi.URLParam(r, "region"))
		})

		r.Post("/consolidated", h.HandleUpsertConsolidated)
		r.Get("/consolidated/{quarter}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetConsolidated(w, r, chi.URLParam(r, "quarter"))
		})

		r.Get("/anchors", h.HandleListAnchors)
		r.Post("/anchors", h.HandleUpsertAnchor)

		r.Route("/prices", func(r chi.Router) {
			r.Post("/{symbol}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleImportPrices(w, r, chi.URLParam(r, "symbol"))
			})
			r.Get("/{symbol}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetPrices(w, r, chi.URLParam(r, "symbol"))
			})
		})

		r.Get("/partition", h.HandlePartitionCheck)
	})
}
