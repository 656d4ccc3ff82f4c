package assignments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/EmpoweredVote/EV-PublicMap/internal/apierr"
	"github.com/EmpoweredVote/EV-PublicMap/internal/points"
	"github.com/EmpoweredVote/EV-PublicMap/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handlers struct {
	mgr           *Manager
	systemActorID string
}

func NewHandlers(mgr *Manager, systemActorID string) *Handlers {
	return &Handlers{mgr: mgr, systemActorID: systemActorID}
}

type assignRequest struct {
	ResidentID string `json:"resident_id"`
	PointID    string `json:"point_id"`
}

// CreateAssignment handles POST /assignments
func (h *Handlers) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var body assignRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierr.Write(w, apierr.Validation("Invalid request body"))
		return
	}
	if body.ResidentID == "" || body.PointID == "" {
		apierr.Write(w, apierr.Validation("resident_id and point_id are required"))
		return
	}
	residentID, err := uuid.Parse(body.ResidentID)
	if err != nil {
		apierr.Write(w, apierr.Validation("resident_id must be a UUID"))
		return
	}
	pointID, err := uuid.Parse(body.PointID)
	if err != nil {
		apierr.Write(w, apierr.Validation("point_id must be a UUID"))
		return
	}

	actor := utils.ActorID(r.Context(), h.systemActorID)
	if _, err := h.mgr.Assign(r.Context(), residentID, pointID, actor); err != nil {
		apierr.Write(w, classify(err))
		return
	}

	apierr.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GetResidentAssignment handles GET /assignments/residents/{id}
func (h *Handlers) GetResidentAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, apierr.Validation("id must be a UUID"))
		return
	}
	row, err := h.mgr.ActiveForResident(r.Context(), id)
	if err != nil {
		apierr.Write(w, classify(err))
		return
	}
	apierr.WriteJSON(w, http.StatusOK, row)
}

// GetResidentHistory handles GET /assignments/residents/{id}/history
func (h *Handlers) GetResidentHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, apierr.Validation("id must be a UUID"))
		return
	}
	rows, err := h.mgr.History(r.Context(), id)
	if err != nil {
		apierr.Write(w, classify(err))
		return
	}
	if rows == nil {
		rows = []points.ResidentPointAssignment{}
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"items": rows})
}

// GetPointAssignment handles GET /assignments/points/{id}
func (h *Handlers) GetPointAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, apierr.Validation("id must be a UUID"))
		return
	}
	row, err := h.mgr.ActiveForPoint(r.Context(), id)
	if err != nil {
		apierr.Write(w, classify(err))
		return
	}
	apierr.WriteJSON(w, http.StatusOK, row)
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrResidentNotFound):
		return apierr.NotFound("Resident not found")
	case errors.Is(err, ErrPointNotFound):
		return apierr.NotFound("Point not found")
	case errors.Is(err, ErrNoActive):
		return apierr.NotFound("No active assignment")
	default:
		return apierr.Internal(err, "Assignment failed")
	}
}
