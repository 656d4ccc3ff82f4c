package points

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Precision string

const (
	PrecisionApprox Precision = "approx"
	PrecisionExact  Precision = "exact"
)

func (p Precision) Valid() bool { return p == PrecisionApprox || p == PrecisionExact }

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool { return s == StatusActive || s == StatusInactive }

// Point is a field-collected location. Lat/Lng are the precise coordinate and
// never leave the service; PublicLat/PublicLng are stamped on write.
type Point struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Lat        float64        `json:"-" gorm:"not null"`
	Lng        float64        `json:"-" gorm:"not null"`
	PublicLat  float64        `json:"public_lat" gorm:"not null"`
	PublicLng  float64        `json:"public_lng" gorm:"not null"`
	AccuracyM  *float64       `json:"accuracy_m"`
	Precision  Precision      `json:"precision" gorm:"size:10;not null;index"`
	Status     Status         `json:"status" gorm:"size:10;not null;index"`
	Category   string         `json:"category"`
	PublicNote string         `json:"public_note"`
	Region     string         `json:"region" gorm:"index"`
	OwnerID    string         `json:"owner_id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

func (p *Point) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type Resident struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Phone     string         `json:"phone"`
	Email     string         `json:"email"`
	Address   string         `json:"address"`
	Status    Status         `json:"status" gorm:"size:10;not null"`
	OwnerID   string         `json:"owner_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (r *Resident) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ResidentPointAssignment is the append-only bridge between a resident and a
// point. At most one active row exists per resident and per point.
type ResidentPointAssignment struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ResidentID   uuid.UUID  `json:"resident_id" gorm:"type:uuid;not null;index"`
	PointID      uuid.UUID  `json:"point_id" gorm:"type:uuid;not null;index"`
	Active       bool       `json:"active" gorm:"not null;index"`
	AssignedAt   time.Time  `json:"assigned_at" gorm:"not null"`
	UnassignedAt *time.Time `json:"unassigned_at"`
	AssignedBy   string     `json:"assigned_by"`
}

func (a *ResidentPointAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AuditLogEntry is mostly written by the CRUD collaborators; this service
// appends entries for assignments and manual refreshes and reads them for
// reporting.
type AuditLogEntry struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ActorID    string    `json:"actor_id" gorm:"not null;index"`
	Action     string    `json:"action" gorm:"not null"`
	EntityType string    `json:"entity_type" gorm:"not null;index:idx_audit_entity"`
	EntityID   string    `json:"entity_id" gorm:"index:idx_audit_entity"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

func (a *AuditLogEntry) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

const (
	EntityPoint    = "point"
	EntityResident = "resident"
	EntitySnapshot = "public_snapshot"
)
