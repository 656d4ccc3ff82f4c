package reports

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/geo"
	"github.com/EmpoweredVote/EV-PublicMap/internal/points"
	"github.com/EmpoweredVote/EV-PublicMap/internal/snapshot"
	"gorm.io/gorm"
)

// Query scopes a report. Bounds is applied against the public coordinate;
// From/To bound the point's last update.
type Query struct {
	Bounds    geo.BBox
	Status    points.Status
	Precision points.Precision
	Region    string
	From      *time.Time
	To        *time.Time
}

type Summary struct {
	SnapshotDate    string     `json:"snapshot_date,omitempty"`
	PointCount      int        `json:"point_count"`
	ResidentCount   int        `json:"resident_count"`
	LastUpdated     *time.Time `json:"last_updated"`
	AuditEventCount int64      `json:"audit_event_count"`
}

func (q Query) matches(r *snapshot.PublicSnapshotRow) bool {
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.Precision != "" && r.Precision != q.Precision {
		return false
	}
	if region := strings.ToLower(strings.TrimSpace(q.Region)); region != "" &&
		!strings.Contains(strings.ToLower(r.Region), region) {
		return false
	}
	if q.From != nil && r.PointUpdatedAt.Before(*q.From) {
		return false
	}
	if q.To != nil && r.PointUpdatedAt.After(*q.To) {
		return false
	}
	return true
}

// Engine computes reports over the latest published snapshot. Preview and
// export are independent computations; nothing is persisted between them.
// The snapshot is loaded into an R-Tree once per refresh and every report
// for that refresh is answered from it.
type Engine struct {
	reader *snapshot.Reader
	db     *gorm.DB

	mu    sync.Mutex
	index *spatialIndex
}

func NewEngine(reader *snapshot.Reader, d *gorm.DB) *Engine {
	return &Engine{reader: reader, db: d}
}

func (e *Engine) indexFor(ctx context.Context, date string, refreshedAt time.Time) (*spatialIndex, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index != nil && e.index.current(date, refreshedAt) {
		return e.index, nil
	}
	rows, err := e.reader.All(ctx, date, snapshot.Filter{})
	if err != nil {
		return nil, err
	}
	e.index = newSpatialIndex(date, refreshedAt, rows)
	log.Printf("[reports] indexed snapshot %s refreshed_at=%s rows=%d", date, refreshedAt.Format(time.RFC3339), len(rows))
	return e.index, nil
}

// Rows returns the snapshot rows matching q along with their snapshot date.
// Before the first refresh there is nothing to report and the result is empty.
func (e *Engine) Rows(ctx context.Context, q Query) ([]snapshot.PublicSnapshotRow, string, error) {
	date, refreshedAt, err := e.reader.Latest(ctx)
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		return []snapshot.PublicSnapshotRow{}, "", nil
	}
	if err != nil {
		return nil, "", err
	}

	ix, err := e.indexFor(ctx, date, refreshedAt)
	if err != nil {
		return nil, "", err
	}
	hits, err := ix.within(q.Bounds)
	if err != nil {
		return nil, "", err
	}

	rows := hits[:0]
	for i := range hits {
		if q.matches(&hits[i]) {
			rows = append(rows, hits[i])
		}
	}
	return rows, date, nil
}

func (e *Engine) Summarize(ctx context.Context, q Query) (Summary, error) {
	rows, date, err := e.Rows(ctx, q)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{SnapshotDate: date, PointCount: len(rows)}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		s.ResidentCount += r.ResidentCount
		if s.LastUpdated == nil || r.PointUpdatedAt.After(*s.LastUpdated) {
			t := r.PointUpdatedAt
			s.LastUpdated = &t
		}
		ids = append(ids, r.PointID.String())
	}

	s.AuditEventCount, err = points.CountAuditEvents(ctx, e.db, points.EntityPoint, ids, q.From, q.To)
	if err != nil {
		return Summary{}, err
	}
	return s, nil
}
