package points_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/db/dbtest"
	"github.com/EmpoweredVote/EV-PublicMap/internal/jitter"
	"github.com/EmpoweredVote/EV-PublicMap/internal/points"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *points.Store {
	t.Helper()
	d := dbtest.Open(t)
	require.NoError(t, points.Init(d))
	return points.NewStore(d, jitter.NewSeeded(1))
}

func ptr(f float64) *float64 { return &f }

func TestCreatePointExactCopiesCoordinate(t *testing.T) {
	s := newStore(t)
	p := &points.Point{Lat: 41.88, Lng: -87.63, AccuracyM: ptr(100), Precision: points.PrecisionExact}
	require.NoError(t, s.CreatePoint(context.Background(), p))

	got, err := s.GetPoint(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 41.88, got.PublicLat)
	assert.Equal(t, -87.63, got.PublicLng)
	assert.Equal(t, points.StatusActive, got.Status)
}

func TestCreatePointApproxStaysWithinAccuracy(t *testing.T) {
	s := newStore(t)
	p := &points.Point{Lat: 41.88, Lng: -87.63, AccuracyM: ptr(200), Precision: points.PrecisionApprox}
	require.NoError(t, s.CreatePoint(context.Background(), p))

	precise := jitter.Coordinate{Lat: p.Lat, Lng: p.Lng}
	public := jitter.Coordinate{Lat: p.PublicLat, Lng: p.PublicLng}
	assert.NotEqual(t, precise, public)
	assert.LessOrEqual(t, jitter.DistanceMeters(precise, public), 200.0+1e-6)
}

func TestUpdatePointKeepsPublicCoordinateUnlessLocationChanges(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	p := &points.Point{Lat: 10, Lng: 10, AccuracyM: ptr(500), Precision: points.PrecisionApprox}
	require.NoError(t, s.CreatePoint(ctx, p))
	firstLat, firstLng := p.PublicLat, p.PublicLng

	p.PublicNote = "gate code on request"
	require.NoError(t, s.UpdatePoint(ctx, p))
	got, err := s.GetPoint(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, firstLat, got.PublicLat)
	assert.Equal(t, firstLng, got.PublicLng)
	assert.Equal(t, "gate code on request", got.PublicNote)

	got.Precision = points.PrecisionExact
	require.NoError(t, s.UpdatePoint(ctx, got))
	again, err := s.GetPoint(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, again.PublicLat)
	assert.Equal(t, 10.0, again.PublicLng)
}

func TestUpdateMissingPoint(t *testing.T) {
	s := newStore(t)
	err := s.UpdatePoint(context.Background(), &points.Point{ID: uuid.New(), Precision: points.PrecisionExact})
	assert.True(t, errors.Is(err, points.ErrNotFound))
}

func TestCreatePointRejectsInvalid(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	assert.Error(t, s.CreatePoint(ctx, &points.Point{Lat: 95, Precision: points.PrecisionExact}))
	assert.Error(t, s.CreatePoint(ctx, &points.Point{Precision: "fuzzy"}))
	assert.Error(t, s.CreatePoint(ctx, &points.Point{Precision: points.PrecisionApprox, AccuracyM: ptr(-1)}))
}

func TestDeletePointIsSoft(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	p := &points.Point{Precision: points.PrecisionExact}
	require.NoError(t, s.CreatePoint(ctx, p))
	require.NoError(t, s.DeletePoint(ctx, p.ID))

	_, err := s.GetPoint(ctx, p.ID)
	assert.True(t, errors.Is(err, points.ErrNotFound))
	assert.True(t, errors.Is(s.DeletePoint(ctx, p.ID), points.ErrNotFound))
}

func TestCountAuditEvents(t *testing.T) {
	d := dbtest.Open(t)
	require.NoError(t, points.Init(d))
	ctx := context.Background()

	a, b := uuid.NewString(), uuid.NewString()
	require.NoError(t, points.Audit(d, "u1", "point.update", points.EntityPoint, a))
	require.NoError(t, points.Audit(d, "u1", "point.update", points.EntityPoint, b))
	require.NoError(t, points.Audit(d, "u2", "resident.update", points.EntityResident, a))

	n, err := points.CountAuditEvents(ctx, d, points.EntityPoint, []string{a}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	future := time.Now().Add(time.Hour)
	n, err = points.CountAuditEvents(ctx, d, points.EntityPoint, []string{a, b}, &future, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = points.CountAuditEvents(ctx, d, points.EntityPoint, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCountAuditEventsBeyondBindLimit(t *testing.T) {
	d := dbtest.Open(t)
	require.NoError(t, points.Init(d))
	ctx := context.Background()

	// more ids than SQLite accepts as bind variables in one statement
	ids := make([]string, 40000)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	for _, id := range []string{ids[0], ids[20000], ids[39999]} {
		require.NoError(t, points.Audit(d, "u1", "point.update", points.EntityPoint, id))
	}

	n, err := points.CountAuditEvents(ctx, d, points.EntityPoint, ids, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
