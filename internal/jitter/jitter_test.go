package jitter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqSource replays a fixed sequence of draws.
type seqSource struct {
	vals []float64
	i    int
}

func (s *seqSource) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func ptr(f float64) *float64 { return &f }

func TestPerturbExactPassthrough(t *testing.T) {
	e := New(&seqSource{vals: []float64{0.5}})
	in := Coordinate{Lat: 41.8781, Lng: -87.6298}

	assert.Equal(t, in, e.Perturb(in, nil))
	assert.Equal(t, in, e.Perturb(in, ptr(0)))
	assert.Equal(t, in, e.Perturb(in, ptr(-25)))
}

func TestPerturbDeterministicSequence(t *testing.T) {
	in := Coordinate{Lat: 0, Lng: 0}

	// u=1, v=0: full radius straight north.
	got := New(&seqSource{vals: []float64{1, 0}}).Perturb(in, ptr(MetersPerDegree))
	assert.InDelta(t, 1.0, got.Lat, 1e-12)
	assert.InDelta(t, 0.0, got.Lng, 1e-12)

	// u=0.25, v=0.25: half radius straight east.
	got = New(&seqSource{vals: []float64{0.25, 0.25}}).Perturb(in, ptr(MetersPerDegree))
	assert.InDelta(t, 0.0, got.Lat, 1e-12)
	assert.InDelta(t, 0.5, got.Lng, 1e-12)
}

func TestOffsetCorrectsLongitudeForLatitude(t *testing.T) {
	in := Coordinate{Lat: 60, Lng: 10}
	// due east at full radius: the degree offset doubles at 60 degrees.
	got := Offset(in, 1000, 1, 0.25)

	wantDeg := 1000 / MetersPerDegree / math.Cos(60*math.Pi/180)
	assert.InDelta(t, in.Lng+wantDeg, got.Lng, 1e-12)
	assert.InDelta(t, 1000, DistanceMeters(in, got), 1e-6)
}

func TestPerturbStaysWithinRadius(t *testing.T) {
	e := NewSeeded(7)
	centers := []Coordinate{{0, 0}, {41.8781, -87.6298}, {-33.8688, 151.2093}, {64.1466, -21.9426}}

	for _, r := range []float64{1, 50, 250, 5000} {
		for _, c := range centers {
			for i := 0; i < 10000; i++ {
				got := e.Perturb(c, ptr(r))
				require.LessOrEqual(t, DistanceMeters(c, got), r*(1+1e-9),
					"radius %v center %+v sample %d", r, c, i)
			}
		}
	}
}

func TestPerturbUniformAreaMeanRadius(t *testing.T) {
	e := NewSeeded(42)
	c := Coordinate{Lat: 41.8781, Lng: -87.6298}
	const r = 500.0
	const n = 10000

	var sum float64
	for i := 0; i < n; i++ {
		sum += DistanceMeters(c, e.Perturb(c, ptr(r)))
	}
	mean := sum / n

	// Uniform area sampling has E[d] = 2r/3; uniform radius would give r/2.
	assert.InDelta(t, r*2/3, mean, r*0.02)
}

func TestOffsetStaysOnTheGlobe(t *testing.T) {
	cases := []struct {
		name string
		in   Coordinate
	}{
		{"near north pole", Coordinate{Lat: 89.9999, Lng: 10}},
		{"north pole", Coordinate{Lat: 90, Lng: 0}},
		{"south pole", Coordinate{Lat: -90, Lng: 45}},
		{"near antimeridian east", Coordinate{Lat: 10, Lng: 179.9999}},
		{"near antimeridian west", Coordinate{Lat: -10, Lng: -179.9999}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, v := range []float64{0, 0.125, 0.25, 0.5, 0.75, 0.99} {
				got := Offset(tc.in, 500, 1, v)
				require.False(t, math.IsNaN(got.Lat) || math.IsNaN(got.Lng))
				assert.GreaterOrEqual(t, got.Lat, -90.0)
				assert.LessOrEqual(t, got.Lat, 90.0)
				assert.GreaterOrEqual(t, got.Lng, -180.0)
				assert.LessOrEqual(t, got.Lng, 180.0)
			}
		})
	}
}

func TestOffsetWrapsAcrossAntimeridian(t *testing.T) {
	in := Coordinate{Lat: 0, Lng: 179.9999}
	// due east at full radius crosses into the western hemisphere.
	got := Offset(in, 1000, 1, 0.25)

	assert.Less(t, got.Lng, 0.0)
	assert.InDelta(t, -180+(1000/MetersPerDegree-0.0001), got.Lng, 1e-9)
	assert.InDelta(t, 1000, DistanceMeters(in, got), 1e-6)
}

func TestWrapLng(t *testing.T) {
	assert.Equal(t, 12.5, WrapLng(12.5))
	assert.Equal(t, 180.0, WrapLng(180))
	assert.Equal(t, -180.0, WrapLng(-180))
	assert.InDelta(t, -179.5, WrapLng(180.5), 1e-12)
	assert.InDelta(t, 179.5, WrapLng(-180.5), 1e-12)
	assert.InDelta(t, 10, WrapLng(370), 1e-12)
}
