package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all assumption set routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/assumptions", func(r chi.Router) {
		r.Post("/import", h.HandleImport)
		r.Route("/sets", func(r chi.Router) {
			r.Get("/", h.HandleListSets)
			r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetSet(w, r, chi.URLParam(r, "id"))
			})
			r.Get("/{id}/payload", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetPayload(w, r, chi.URLParam(r, "id"))
			})
			r.Post("/{id}/activate", func(w http.ResponseWriter, r *http.Request) {
				h.HandleActivateSet(w, r, chi.URLParam(r, "id"))
			})
		})
	})
}
