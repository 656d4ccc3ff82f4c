package snapshot

import (
	"strings"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/points"
	"github.com/google/uuid"
)

// DateLayout formats SnapshotDate.
const DateLayout = "2006-01-02"

// ParseTime accepts RFC3339 timestamps or bare YYYY-MM-DD dates (UTC midnight).
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(DateLayout, s)
}

// PublicSnapshotRow is one point's public state on one calendar day. Rows for
// a date are replaced wholesale by a refresh and never edited in place.
type PublicSnapshotRow struct {
	PointID        uuid.UUID        `json:"point_id" gorm:"type:uuid;primaryKey"`
	SnapshotDate   string           `json:"snapshot_date" gorm:"size:10;primaryKey;index:idx_snapshot_date"`
	Lat            float64          `json:"lat" gorm:"not null"`
	Lng            float64          `json:"lng" gorm:"not null"`
	Status         points.Status    `json:"status" gorm:"size:10;not null"`
	Precision      points.Precision `json:"precision" gorm:"size:10;not null"`
	Category       string           `json:"category"`
	Region         string           `json:"region"`
	ResidentCount  int              `json:"resident_count" gorm:"not null"`
	PublicNote     string           `json:"public_note"`
	PointUpdatedAt time.Time        `json:"updated_at"`
	RefreshedAt    time.Time        `json:"refreshed_at" gorm:"not null;index"`
}
