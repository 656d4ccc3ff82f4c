package snapshot

import (
	"net/http"

	"github.com/EmpoweredVote/EV-PublicMap/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// SetupAdminRoutes mounts under /admin; every route requires the admin role.
func SetupAdminRoutes(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminMiddleware)
		r.Post("/sync/public-map", h.SyncPublicMap)
		r.Get("/sync/public-map", h.SyncStatus)
	})

	return r
}
