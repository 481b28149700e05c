package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all overlay volume routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/overlay", func(r chi.Router) {
		r.Get("/cycles", h.HandleListCycles)
		r.Post("/volumes", h.HandleUpsertVolume)
		r.Get("/volumes/{cycle}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetVolumes(w, r, chi.URLParam(r, "cycle"))
		})
	})
}
