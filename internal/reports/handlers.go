package reports

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/apierr"
	"github.com/EmpoweredVote/EV-PublicMap/internal/geo"
	"github.com/EmpoweredVote/EV-PublicMap/internal/points"
	"github.com/EmpoweredVote/EV-PublicMap/internal/snapshot"
	"github.com/google/uuid"
)

type Handlers struct {
	engine *Engine
}

func NewHandlers(engine *Engine) *Handlers {
	return &Handlers{engine: engine}
}

type reportRequest struct {
	Bounds    *geo.BBox `json:"bounds"`
	Status    string    `json:"status"`
	Precision string    `json:"precision"`
	Region    string    `json:"region"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Format    string    `json:"format"`
	Include   []string  `json:"include"`
}

func (req reportRequest) query() (Query, error) {
	if req.Bounds == nil {
		return Query{}, apierr.Validation("bounds is required")
	}
	if err := req.Bounds.Validate(); err != nil {
		return Query{}, apierr.Validation("%v", err)
	}
	q := Query{Bounds: *req.Bounds, Region: req.Region}

	if req.Status != "" {
		q.Status = points.Status(strings.ToLower(req.Status))
		if !q.Status.Valid() {
			return Query{}, apierr.Validation("status must be active or inactive")
		}
	}
	if req.Precision != "" {
		q.Precision = points.Precision(strings.ToLower(req.Precision))
		if !q.Precision.Valid() {
			return Query{}, apierr.Validation("precision must be approx or exact")
		}
	}

	var err error
	if q.From, err = optionalTime(req.From, "from"); err != nil {
		return Query{}, err
	}
	if q.To, err = optionalTime(req.To, "to"); err != nil {
		return Query{}, err
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return Query{}, apierr.Validation("from must not be after to")
	}
	return q, nil
}

func optionalTime(s, field string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := snapshot.ParseTime(s)
	if err != nil {
		return nil, apierr.Validation("%s must be RFC3339 or YYYY-MM-DD", field)
	}
	return &t, nil
}

func decode(r *http.Request) (reportRequest, error) {
	var body reportRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return body, apierr.Validation("Invalid request body")
	}
	return body, nil
}

// Preview handles POST /reports/preview
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	body, err := decode(r)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	q, err := body.query()
	if err != nil {
		apierr.Write(w, err)
		return
	}

	summary, err := h.engine.Summarize(r.Context(), q)
	if err != nil {
		apierr.Write(w, apierr.Internal(err, "Failed to compute report"))
		return
	}

	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"report_id": uuid.NewString(),
		"summary":   summary,
	})
}

// Export handles POST /reports/export
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	body, err := decode(r)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	q, err := body.query()
	if err != nil {
		apierr.Write(w, err)
		return
	}
	if strings.TrimSpace(body.Format) == "" {
		apierr.Write(w, apierr.Validation("format is required"))
		return
	}
	format, err := ParseFormat(body.Format)
	if err != nil {
		apierr.Write(w, apierr.Validation("%v", err))
		return
	}
	if _, err := selectColumns(body.Include); err != nil {
		apierr.Write(w, apierr.Validation("%v", err))
		return
	}

	rows, date, err := h.engine.Rows(r.Context(), q)
	if err != nil {
		apierr.Write(w, apierr.Internal(err, "Failed to compute report"))
		return
	}

	out, err := Render(format, rows, body.Include, date)
	if err != nil {
		if errors.Is(err, ErrUnknownColumn) {
			apierr.Write(w, apierr.Validation("%v", err))
			return
		}
		apierr.Write(w, apierr.Internal(err, "Failed to render report"))
		return
	}
	apierr.WriteJSON(w, http.StatusOK, out)
}
