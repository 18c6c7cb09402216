package customers

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/lookup", h.Lookup)
	r.Get("/{id}", h.Show)
	r.Put("/{id}", h.Update)
}
