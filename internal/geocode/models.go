package geocode

import "time"

// GeocodeCacheEntry stores the latest successful lookup for a normalized
// address. Failures are never stored.
type GeocodeCacheEntry struct {
	Query            string    `json:"query" gorm:"primaryKey"`
	OriginalQuery    string    `json:"original_query"`
	Lat              float64   `json:"lat" gorm:"not null"`
	Lng              float64   `json:"lng" gorm:"not null"`
	FormattedAddress string    `json:"formatted_address"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Result is what callers of Resolve receive.
type Result struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formatted_address"`
}
