package publicmap

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/apierr"
	"github.com/EmpoweredVote/EV-PublicMap/internal/cursor"
	"github.com/EmpoweredVote/EV-PublicMap/internal/geo"
	"github.com/EmpoweredVote/EV-PublicMap/internal/points"
	"github.com/EmpoweredVote/EV-PublicMap/internal/snapshot"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handlers struct {
	reader *snapshot.Reader
}

func NewHandlers(reader *snapshot.Reader) *Handlers {
	return &Handlers{reader: reader}
}

type listResponse struct {
	Items      []snapshot.PublicSnapshotRow `json:"items"`
	NextCursor *string                      `json:"next_cursor"`
	LastSyncAt *time.Time                   `json:"last_sync_at"`
}

// ListPoints handles GET /map/points
func (h *Handlers) ListPoints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	raw := q.Get("bbox")
	if strings.TrimSpace(raw) == "" {
		apierr.Write(w, apierr.Validation("bbox is required (west,south,east,north)"))
		return
	}
	box, err := geo.ParseBBox(raw)
	if err != nil {
		apierr.Write(w, apierr.Validation("%v", err))
		return
	}

	filter, err := parseFilter(q.Get("status"), q.Get("precision"), q.Get("updated_since"))
	if err != nil {
		apierr.Write(w, err)
		return
	}
	filter.BBox = &box

	limit := cursor.ClampLimit(q.Get("limit"))
	offset := cursor.Decode(q.Get("cursor"))

	date, lastSync, err := h.reader.Latest(r.Context())
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		apierr.WriteJSON(w, http.StatusOK, listResponse{Items: []snapshot.PublicSnapshotRow{}})
		return
	}
	if err != nil {
		apierr.Write(w, apierr.Internal(err, "Failed to read snapshot"))
		return
	}

	rows, err := h.reader.Page(r.Context(), date, filter, offset, limit)
	if err != nil {
		apierr.Write(w, apierr.Internal(err, "Failed to read snapshot"))
		return
	}
	items, next := cursor.Page(rows, offset, limit)
	if items == nil {
		items = []snapshot.PublicSnapshotRow{}
	}

	resp := listResponse{Items: items, LastSyncAt: &lastSync}
	if next != "" {
		resp.NextCursor = &next
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	apierr.WriteJSON(w, http.StatusOK, resp)
}

// GetPoint handles GET /map/points/{id}
func (h *Handlers) GetPoint(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, apierr.NotFound("Point not found"))
		return
	}

	row, err := h.reader.ForPoint(r.Context(), id)
	if errors.Is(err, snapshot.ErrNotFound) {
		apierr.Write(w, apierr.NotFound("Point not found"))
		return
	}
	if err != nil {
		apierr.Write(w, apierr.Internal(err, "Failed to read snapshot"))
		return
	}
	apierr.WriteJSON(w, http.StatusOK, row)
}

func parseFilter(status, precision, updatedSince string) (snapshot.Filter, error) {
	var f snapshot.Filter
	if status != "" {
		f.Status = points.Status(strings.ToLower(status))
		if !f.Status.Valid() {
			return f, apierr.Validation("status must be active or inactive")
		}
	}
	if precision != "" {
		f.Precision = points.Precision(strings.ToLower(precision))
		if !f.Precision.Valid() {
			return f, apierr.Validation("precision must be approx or exact")
		}
	}
	if updatedSince != "" {
		t, err := snapshot.ParseTime(updatedSince)
		if err != nil {
			return f, apierr.Validation("updated_since must be RFC3339 or YYYY-MM-DD")
		}
		f.UpdatedSince = &t
	}
	return f, nil
}
