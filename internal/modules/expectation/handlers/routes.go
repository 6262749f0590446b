package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all expectation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/expectation", func(r chi.Router) {
		r.Post("/ket", h.HandleKetExpectation)
		r.Post("/density", h.HandleDensityExpectation)
	})
}
