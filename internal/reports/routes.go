package reports

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Post("/preview", h.Preview)
	r.Post("/export", h.Export)

	return r
}
