package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/points"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const batchSize = 500

// Result describes one committed refresh.
type Result struct {
	SnapshotDate string    `json:"snapshot_date"`
	Rows         int       `json:"rows"`
	RefreshedAt  time.Time `json:"refreshed_at"`
}

// Builder rebuilds today's public snapshot from points and active
// assignments.
type Builder struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

func NewBuilder(d *gorm.DB, loc *time.Location) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{db: d, loc: loc, now: time.Now}
}

// Today is the snapshot date a refresh started now would write.
func (b *Builder) Today() string {
	return b.now().In(b.loc).Format(DateLayout)
}

// Refresh deletes today's rows and inserts one row per non-deleted point in a
// single transaction. Readers see either the previous rows or the new ones.
// A non-empty actorID records an audit entry in the same transaction.
func (b *Builder) Refresh(ctx context.Context, actorID string) (Result, error) {
	now := b.now()
	res := Result{
		SnapshotDate: now.In(b.loc).Format(DateLayout),
		RefreshedAt:  now.UTC(),
	}

	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("snapshot_date = ?", res.SnapshotDate).
			Delete(&PublicSnapshotRow{}).Error; err != nil {
			return fmt.Errorf("delete snapshot %s: %w", res.SnapshotDate, err)
		}

		counts, err := activeCounts(tx)
		if err != nil {
			return err
		}

		var batch []points.Point
		found := tx.Model(&points.Point{}).
			FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
				rows := make([]PublicSnapshotRow, 0, len(batch))
				for _, p := range batch {
					rows = append(rows, PublicSnapshotRow{
						PointID:        p.ID,
						SnapshotDate:   res.SnapshotDate,
						Lat:            p.PublicLat,
						Lng:            p.PublicLng,
						Status:         p.Status,
						Precision:      p.Precision,
						Category:       p.Category,
						Region:         p.Region,
						ResidentCount:  counts[p.ID],
						PublicNote:     p.PublicNote,
						PointUpdatedAt: p.UpdatedAt.UTC(),
						RefreshedAt:    res.RefreshedAt,
					})
				}
				if err := tx.Create(&rows).Error; err != nil {
					return fmt.Errorf("insert snapshot rows: %w", err)
				}
				res.Rows += len(rows)
				return nil
			})
		if found.Error != nil {
			return found.Error
		}

		if actorID != "" {
			return points.Audit(tx, actorID, "snapshot.refresh", points.EntitySnapshot, res.SnapshotDate)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func activeCounts(tx *gorm.DB) (map[uuid.UUID]int, error) {
	var agg []struct {
		PointID uuid.UUID
		N       int
	}
	if err := tx.Model(&points.ResidentPointAssignment{}).
		Select("point_id, COUNT(*) AS n").
		Where("active = ?", true).
		Group("point_id").
		Scan(&agg).Error; err != nil {
		return nil, fmt.Errorf("count active assignments: %w", err)
	}

	counts := make(map[uuid.UUID]int, len(agg))
	for _, a := range agg {
		counts[a.PointID] = a.N
	}
	return counts, nil
}
