package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all forecast run routes. The run event stream is
// mounted by the server, which owns the websocket plumbing.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/forecast", func(r chi.Router) {
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", h.HandleCreateRun)
			r.Get("/", h.HandleListRuns)
			r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetRun(w, r, chi.URLParam(r, "id"))
			})
			r.Get("/{id}/report", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetReport(w, r, chi.URLParam(r, "id"))
			})
		})
	})
}
