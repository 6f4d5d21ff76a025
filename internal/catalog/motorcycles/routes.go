package motorcycles

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/motorcycles", h.list)
	r.Get("/motorcycles/{id}", h.show)
	r.Post("/motorcycles", h.create)
	r.Put("/motorcycles/{id}", h.update)
	r.Delete("/motorcycles/{id}", h.deactivate)
}
