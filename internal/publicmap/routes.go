package publicmap

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/points", h.ListPoints)
	r.Get("/points/{id}", h.GetPoint)

	return r
}
