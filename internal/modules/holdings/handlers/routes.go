package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all purchase program routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/holdings", func(r chi.Router) {
		r.Route("/programs", func(r chi.Router) {
			r.Get("/", h.HandleListPrograms)
			r.Post("/", h.HandleUpsertProgram)
			r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleDeleteProgram(w, r, chi.URLParam(r, "id"))
			})
		})
	})
}
