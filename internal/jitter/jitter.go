// Package jitter perturbs precise coordinates into public-safe ones.
//
// A point inside the accuracy disk is drawn with uniform area density: the
// radial distance is radius*sqrt(u), so samples are not biased toward the
// center. Longitude offsets are divided by cos(lat) so the disk is round in
// meters rather than in degrees. Results always stay on the globe: latitude
// is clamped at the poles and longitude wraps across the antimeridian.
package jitter

import (
	"math"
	"math/rand"
	"sync"
)

// MetersPerDegree is the length of one degree of latitude.
const MetersPerDegree = 111320.0

// minCosLat floors the longitude scale so points at a pole stay finite.
const minCosLat = 1e-9

// Coordinate is a WGS84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Source yields uniform values in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Engine applies the perturbation using an injected Source.
type Engine struct {
	mu  sync.Mutex
	src Source
}

// New returns an Engine drawing from src.
func New(src Source) *Engine {
	return &Engine{src: src}
}

// NewSeeded returns an Engine over a math/rand generator with the given seed.
func NewSeeded(seed int64) *Engine {
	return New(rand.New(rand.NewSource(seed)))
}

// Perturb returns the public coordinate for c. A nil or non-positive accuracy
// returns c unchanged.
func (e *Engine) Perturb(c Coordinate, accuracyMeters *float64) Coordinate {
	if accuracyMeters == nil || *accuracyMeters <= 0 {
		return c
	}

	// Source implementations such as *rand.Rand are not goroutine safe.
	e.mu.Lock()
	u := e.src.Float64()
	v := e.src.Float64()
	e.mu.Unlock()

	return Offset(c, *accuracyMeters, u, v)
}

// Offset is the deterministic core of Perturb for given draws u and v.
func Offset(c Coordinate, radiusMeters, u, v float64) Coordinate {
	radiusDeg := radiusMeters / MetersPerDegree
	distance := radiusDeg * math.Sqrt(u)
	angle := 2 * math.Pi * v

	dLat := distance * math.Cos(angle)
	dLng := distance * math.Sin(angle) / math.Max(math.Cos(c.Lat*math.Pi/180), minCosLat)

	lat := math.Max(-90, math.Min(90, c.Lat+dLat))
	return Coordinate{Lat: lat, Lng: WrapLng(c.Lng + dLng)}
}

// WrapLng folds a longitude into [-180, 180]. In-range values are returned
// untouched.
func WrapLng(lng float64) float64 {
	if lng >= -180 && lng <= 180 {
		return lng
	}
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lng - 180
}

// DistanceMeters is the local planar distance between a and b, using the same
// meters-per-degree scale as Offset with longitude scaled by cos(a.Lat). The
// longitude difference takes the short way across the antimeridian.
func DistanceMeters(a, b Coordinate) float64 {
	dy := (b.Lat - a.Lat) * MetersPerDegree
	dx := WrapLng(b.Lng-a.Lng) * MetersPerDegree * math.Cos(a.Lat*math.Pi/180)
	return math.Hypot(dx, dy)
}
