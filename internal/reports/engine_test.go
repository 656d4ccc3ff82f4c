package reports

import (
	"context"
	"testing"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/db/dbtest"
	"github.com/EmpoweredVote/EV-PublicMap/internal/geo"
	"github.com/EmpoweredVote/EV-PublicMap/internal/jitter"
	"github.com/EmpoweredVote/EV-PublicMap/internal/points"
	"github.com/EmpoweredVote/EV-PublicMap/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineEnv struct {
	engine  *Engine
	store   *points.Store
	builder *snapshot.Builder
}

func newEngineEnv(t *testing.T) *engineEnv {
	t.Helper()
	d := dbtest.Open(t)
	require.NoError(t, points.Init(d))
	require.NoError(t, snapshot.Init(d))
	return &engineEnv{
		engine:  NewEngine(snapshot.NewReader(d), d),
		store:   points.NewStore(d, jitter.NewSeeded(3)),
		builder: snapshot.NewBuilder(d, time.UTC),
	}
}

func (e *engineEnv) point(t *testing.T, lat, lng float64, opts ...func(*points.Point)) *points.Point {
	t.Helper()
	p := &points.Point{Lat: lat, Lng: lng, Precision: points.PrecisionExact}
	for _, o := range opts {
		o(p)
	}
	require.NoError(t, e.store.CreatePoint(context.Background(), p))
	return p
}

func (e *engineEnv) refresh(t *testing.T) {
	t.Helper()
	_, err := e.builder.Refresh(context.Background(), "")
	require.NoError(t, err)
}

var everywhere = geo.BBox{West: -180, South: -90, East: 180, North: 90}

func TestEngineReusesIndexUntilNextRefresh(t *testing.T) {
	e := newEngineEnv(t)
	ctx := context.Background()
	e.point(t, 1, 1)
	e.refresh(t)

	rows, _, err := e.engine.Rows(ctx, Query{Bounds: everywhere})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	first := e.engine.index
	require.NotNil(t, first)

	_, _, err = e.engine.Rows(ctx, Query{Bounds: geo.BBox{West: 0, South: 0, East: 2, North: 2}})
	require.NoError(t, err)
	assert.Same(t, first, e.engine.index)

	// a point written after the refresh stays invisible until the next one
	added := e.point(t, 2, 2)
	rows, _, err = e.engine.Rows(ctx, Query{Bounds: everywhere})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	time.Sleep(2 * time.Millisecond)
	e.refresh(t)
	rows, _, err = e.engine.Rows(ctx, Query{Bounds: everywhere})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.NotSame(t, first, e.engine.index)

	var ids []string
	for _, r := range rows {
		ids = append(ids, r.PointID.String())
	}
	assert.Contains(t, ids, added.ID.String())
}

func TestEngineAppliesAttributeFilters(t *testing.T) {
	e := newEngineEnv(t)
	ctx := context.Background()
	lake := e.point(t, 1, 1, func(p *points.Point) { p.Region = "Lakeview" })
	e.point(t, 2, 2, func(p *points.Point) {
		p.Region = "North Side"
		p.Status = points.StatusInactive
	})
	e.point(t, 3, 3, func(p *points.Point) {
		p.Precision = points.PrecisionApprox
		p.AccuracyM = new(float64)
	})
	e.refresh(t)

	count := func(q Query) int {
		t.Helper()
		q.Bounds = everywhere
		rows, _, err := e.engine.Rows(ctx, q)
		require.NoError(t, err)
		return len(rows)
	}

	assert.Equal(t, 3, count(Query{}))
	assert.Equal(t, 1, count(Query{Region: "  LAKE "}))
	assert.Equal(t, 1, count(Query{Status: points.StatusInactive}))
	assert.Equal(t, 1, count(Query{Precision: points.PrecisionApprox}))

	past := lake.UpdatedAt.Add(-time.Hour)
	future := lake.UpdatedAt.Add(time.Hour)
	assert.Equal(t, 3, count(Query{From: &past, To: &future}))
	assert.Equal(t, 0, count(Query{From: &future}))
	assert.Equal(t, 0, count(Query{To: &past}))
}
