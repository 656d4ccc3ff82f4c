package assignments

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Post("/", h.CreateAssignment)
	r.Get("/residents/{id}", h.GetResidentAssignment)
	r.Get("/residents/{id}/history", h.GetResidentHistory)
	r.Get("/points/{id}", h.GetPointAssignment)

	return r
}
