package reports

import (
	"fmt"
	"sort"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/geo"
	"github.com/EmpoweredVote/EV-PublicMap/internal/snapshot"
	"github.com/dhconnelly/rtreego"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50
	tolerance   = 1e-9
)

// spatialRow wraps a snapshot row position for R-Tree indexing on its public
// coordinate.
type spatialRow struct {
	pos  int
	rect *rtreego.Rect
}

func (s *spatialRow) Bounds() *rtreego.Rect {
	return s.rect
}

// spatialIndex is an R-Tree over every row of one published snapshot. It is
// immutable once built and keyed by the refresh it was loaded from, so a new
// refresh of the same date is never served from a stale tree.
type spatialIndex struct {
	date        string
	refreshedAt time.Time
	rows        []snapshot.PublicSnapshotRow
	tree        *rtreego.Rtree
}

func newSpatialIndex(date string, refreshedAt time.Time, rows []snapshot.PublicSnapshotRow) *spatialIndex {
	tree := rtreego.NewTree(dimensions, minChildren, maxChildren)
	for i := range rows {
		p := rtreego.Point{rows[i].Lat, rows[i].Lng}
		tree.Insert(&spatialRow{pos: i, rect: p.ToRect(tolerance)})
	}
	return &spatialIndex{date: date, refreshedAt: refreshedAt, rows: rows, tree: tree}
}

func (ix *spatialIndex) current(date string, refreshedAt time.Time) bool {
	return ix.date == date && ix.refreshedAt.Equal(refreshedAt)
}

// within returns the rows whose public coordinate lies inside box, boundary
// included, in listing order.
func (ix *spatialIndex) within(box geo.BBox) ([]snapshot.PublicSnapshotRow, error) {
	if len(ix.rows) == 0 {
		return []snapshot.PublicSnapshotRow{}, nil
	}

	// inflate so degenerate boxes (a single line or point) still have volume
	bounds, err := rtreego.NewRect(
		rtreego.Point{box.South - tolerance, box.West - tolerance},
		[]float64{box.North - box.South + 2*tolerance, box.East - box.West + 2*tolerance},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid bounding box: %w", err)
	}

	var hits []int
	for _, s := range ix.tree.SearchIntersect(bounds) {
		item, ok := s.(*spatialRow)
		if !ok {
			continue
		}
		// the tree works on inflated rects; confirm against the exact box
		r := &ix.rows[item.pos]
		if box.Contains(r.Lat, r.Lng) {
			hits = append(hits, item.pos)
		}
	}
	sort.Ints(hits)

	out := make([]snapshot.PublicSnapshotRow, len(hits))
	for i, pos := range hits {
		out[i] = ix.rows[pos]
	}
	return out, nil
}
