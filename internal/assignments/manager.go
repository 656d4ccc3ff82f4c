package assignments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/points"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrResidentNotFound = errors.New("resident not found")
	ErrPointNotFound    = errors.New("point not found")
	ErrNoActive         = errors.New("no active assignment")
)

// maxAttempts bounds retries when a concurrent assignment commits first and
// the partial unique index rejects our insert.
const maxAttempts = 3

// Manager keeps at most one active assignment per resident and per point.
type Manager struct {
	db  *gorm.DB
	now func() time.Time
}

func NewManager(d *gorm.DB) *Manager {
	return &Manager{db: d, now: time.Now}
}

// Assign makes residentID the sole active occupant of pointID. Within one
// transaction it deactivates the resident's active row, then the point's
// active row, then inserts a fresh active row. Re-assigning an existing pair
// still appends a new row.
func (m *Manager) Assign(ctx context.Context, residentID, pointID uuid.UUID, actorID string) (*points.ResidentPointAssignment, error) {
	var (
		row *points.ResidentPointAssignment
		err error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		row, err = m.assignOnce(ctx, residentID, pointID, actorID)
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		log.Printf("[assignments] conflict resident=%s point=%s attempt=%d", residentID, pointID, attempt)
	}
	return row, err
}

func (m *Manager) assignOnce(ctx context.Context, residentID, pointID uuid.UUID, actorID string) (*points.ResidentPointAssignment, error) {
	now := m.now().UTC()
	row := &points.ResidentPointAssignment{
		ResidentID: residentID,
		PointID:    pointID,
		Active:     true,
		AssignedAt: now,
		AssignedBy: actorID,
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &points.Resident{}, residentID, ErrResidentNotFound); err != nil {
			return err
		}
		if err := exists(tx, &points.Point{}, pointID, ErrPointNotFound); err != nil {
			return err
		}

		release := map[string]any{"active": false, "unassigned_at": now}

		if err := tx.Model(&points.ResidentPointAssignment{}).
			Where("resident_id = ? AND active = ?", residentID, true).
			Updates(release).Error; err != nil {
			return fmt.Errorf("deactivate resident assignment: %w", err)
		}
		if err := tx.Model(&points.ResidentPointAssignment{}).
			Where("point_id = ? AND active = ?", pointID, true).
			Updates(release).Error; err != nil {
			return fmt.Errorf("deactivate point assignment: %w", err)
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}

		return points.Audit(tx, actorID, "assignment.create", points.EntityPoint, pointID.String())
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[assignments] resident=%s point=%s assignment=%s by=%s", residentID, pointID, row.ID, actorID)
	return row, nil
}

func exists(tx *gorm.DB, model any, id uuid.UUID, notFound error) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// ActiveForResident returns the resident's active assignment.
func (m *Manager) ActiveForResident(ctx context.Context, residentID uuid.UUID) (*points.ResidentPointAssignment, error) {
	return m.active(ctx, "resident_id", residentID)
}

// ActiveForPoint returns the point's active assignment.
func (m *Manager) ActiveForPoint(ctx context.Context, pointID uuid.UUID) (*points.ResidentPointAssignment, error) {
	return m.active(ctx, "point_id", pointID)
}

func (m *Manager) active(ctx context.Context, column string, id uuid.UUID) (*points.ResidentPointAssignment, error) {
	var row points.ResidentPointAssignment
	err := m.db.WithContext(ctx).
		Where(column+" = ? AND active = ?", id, true).
		Order("assigned_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActive
		}
		return nil, err
	}
	return &row, nil
}

// History returns every assignment row touching the resident, newest first.
func (m *Manager) History(ctx context.Context, residentID uuid.UUID) ([]points.ResidentPointAssignment, error) {
	var rows []points.ResidentPointAssignment
	err := m.db.WithContext(ctx).
		Where("resident_id = ?", residentID).
		Order("assigned_at DESC, id ASC").
		Find(&rows).Error
	return rows, err
}
