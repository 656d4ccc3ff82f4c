package points

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/jitter"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// Store is the write path for points and residents. It is the only place a
// public coordinate is computed.
type Store struct {
	db     *gorm.DB
	jitter *jitter.Engine
}

func NewStore(d *gorm.DB, j *jitter.Engine) *Store {
	return &Store{db: d, jitter: j}
}

// Validate checks p's coordinate, precision, status and accuracy, defaulting
// an empty status to active.
func Validate(p *Point) error {
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("coordinate out of range: %v,%v", p.Lat, p.Lng)
	}
	if !p.Precision.Valid() {
		return fmt.Errorf("invalid precision %q", p.Precision)
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if !p.Status.Valid() {
		return fmt.Errorf("invalid status %q", p.Status)
	}
	if p.AccuracyM != nil && *p.AccuracyM < 0 {
		return fmt.Errorf("accuracy must be non-negative")
	}
	return nil
}

// StampPublic sets the public coordinate from the precise coordinate,
// precision and accuracy. Bulk loaders that bypass the Store call it directly.
func StampPublic(j *jitter.Engine, p *Point) {
	precise := jitter.Coordinate{Lat: p.Lat, Lng: p.Lng}
	public := precise
	if p.Precision == PrecisionApprox {
		public = j.Perturb(precise, p.AccuracyM)
	}
	p.PublicLat, p.PublicLng = public.Lat, public.Lng
}

// CreatePoint validates p, stamps its public coordinate and inserts it.
func (s *Store) CreatePoint(ctx context.Context, p *Point) error {
	if err := Validate(p); err != nil {
		return err
	}
	StampPublic(s.jitter, p)
	return s.db.WithContext(ctx).Create(p).Error
}

// UpdatePoint saves p. The public coordinate is re-stamped only when the
// precise coordinate, precision or accuracy changed, so repeated edits of
// other fields never publish fresh samples of the same location.
func (s *Store) UpdatePoint(ctx context.Context, p *Point) error {
	if err := Validate(p); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Point
		if err := tx.First(&existing, "id = ?", p.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if locationChanged(&existing, p) {
			StampPublic(s.jitter, p)
		} else {
			p.PublicLat, p.PublicLng = existing.PublicLat, existing.PublicLng
		}
		p.CreatedAt = existing.CreatedAt
		return tx.Save(p).Error
	})
}

func locationChanged(a, b *Point) bool {
	if a.Lat != b.Lat || a.Lng != b.Lng || a.Precision != b.Precision {
		return true
	}
	switch {
	case a.AccuracyM == nil && b.AccuracyM == nil:
		return false
	case a.AccuracyM == nil || b.AccuracyM == nil:
		return true
	default:
		return *a.AccuracyM != *b.AccuracyM
	}
}

// DeletePoint soft-deletes a point; it disappears from the next snapshot.
func (s *Store) DeletePoint(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&Point{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetPoint(ctx context.Context, id uuid.UUID) (*Point, error) {
	var p Point
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateResident(ctx context.Context, r *Resident) error {
	if r.Status == "" {
		r.Status = StatusActive
	}
	if !r.Status.Valid() {
		return fmt.Errorf("invalid status %q", r.Status)
	}
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *Store) GetResident(ctx context.Context, id uuid.UUID) (*Resident, error) {
	var r Resident
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// Audit appends an audit entry using tx, so callers inside a transaction get
// the entry committed or rolled back with their own writes.
func Audit(tx *gorm.DB, actorID, action, entityType, entityID string) error {
	return tx.Create(&AuditLogEntry{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	}).Error
}

// auditIDBatch caps the ids bound into one IN list, well under the
// bind-variable limits of SQLite (32766) and Postgres (65535).
const auditIDBatch = 1000

// CountAuditEvents counts entries of entityType touching any of ids, created
// inside the optional [from, to] window. ids must be distinct; they are
// queried in batches of auditIDBatch and the counts summed.
func CountAuditEvents(ctx context.Context, d *gorm.DB, entityType string, ids []string, from, to *time.Time) (int64, error) {
	var total int64
	for start := 0; start < len(ids); start += auditIDBatch {
		batch := ids[start:min(start+auditIDBatch, len(ids))]
		q := d.WithContext(ctx).Model(&AuditLogEntry{}).
			Where("entity_type = ? AND entity_id IN ?", entityType, batch)
		if from != nil {
			q = q.Where("created_at >= ?", *from)
		}
		if to != nil {
			q = q.Where("created_at <= ?", *to)
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
