package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all price resolution routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/prices", h.HandleResolve)
}
