package geocode

import (
	"errors"
	"net/http"

	"github.com/EmpoweredVote/EV-PublicMap/internal/apierr"
)

type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// Geocode handles GET /geocode?address=
func (h *Handlers) Geocode(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Resolve(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		apierr.Write(w, classify(err))
		return
	}
	apierr.WriteJSON(w, http.StatusOK, res)
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrEmptyAddress):
		return apierr.Validation("address is required")
	case errors.Is(err, ErrNoMatch):
		return apierr.NotFound("No match for address")
	case errors.Is(err, ErrUpstream):
		return apierr.Upstream(err, "Geocoding provider unavailable")
	case errors.Is(err, ErrNotConfigured):
		return apierr.Config(err, "Geocoding is not configured")
	}
	return apierr.Internal(err, "Geocoding failed")
}
