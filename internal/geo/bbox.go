// Package geo holds the bounding box used to spatially filter public points.
package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidBBox = errors.New("bbox must be west,south,east,north in decimal degrees")

// BBox is a west/south/east/north rectangle. Boundaries are inclusive.
type BBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// ParseBBox parses "west,south,east,north".
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 4 {
		return BBox{}, ErrInvalidBBox
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("%w: %q", ErrInvalidBBox, p)
		}
		vals[i] = v
	}
	b := BBox{West: vals[0], South: vals[1], East: vals[2], North: vals[3]}
	if err := b.Validate(); err != nil {
		return BBox{}, err
	}
	return b, nil
}

// Validate rejects out-of-range and inverted boxes. Boxes crossing the
// antimeridian are not supported; callers split them in two.
func (b BBox) Validate() error {
	if b.West < -180 || b.East > 180 || b.South < -90 || b.North > 90 {
		return fmt.Errorf("%w: out of range", ErrInvalidBBox)
	}
	if b.West > b.East || b.South > b.North {
		return fmt.Errorf("%w: west must not exceed east and south must not exceed north", ErrInvalidBBox)
	}
	return nil
}

// Contains reports whether lat/lng lies inside b, boundary included.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.South && lat <= b.North && lng >= b.West && lng <= b.East
}
