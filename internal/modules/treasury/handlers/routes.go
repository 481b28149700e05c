package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all treasury input routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/treasury", func(r chi.Router) {
		r.Route("/rate-events", func(r chi.Router) {
			r.Get("/", h.HandleListRateEvents)
			r.Post("/", h.HandleUpsertRateEvent)
			r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleDeleteRateEvent(w, r, chi.URLParam(r, "id"))
			})
		})
		r.Route("/funding-events", func(r chi.Router) {
			r.Get("/", h.HandleListFundingEvents)
			r.Post("/", h.HandleUpsertFundingEvent)
			r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleDeleteFundingEvent(w, r, chi.URLParam(r, "id"))
			})
		})
	})
}
