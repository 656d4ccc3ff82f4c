package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/geo"
	"github.com/EmpoweredVote/EV-PublicMap/internal/points"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound   = errors.New("snapshot row not found")
	ErrNoSnapshot = errors.New("no snapshot has been published")
)

// Filter narrows snapshot reads. Zero values match everything.
type Filter struct {
	BBox         *geo.BBox
	Status       points.Status
	Precision    points.Precision
	UpdatedSince *time.Time
}

// Reader serves every read of the published snapshot. It never writes.
type Reader struct {
	db *gorm.DB
}

func NewReader(d *gorm.DB) *Reader {
	return &Reader{db: d}
}

// Latest returns the newest snapshot date and its refresh timestamp.
func (r *Reader) Latest(ctx context.Context) (string, time.Time, error) {
	var row PublicSnapshotRow
	err := r.db.WithContext(ctx).
		Order("snapshot_date DESC, refreshed_at DESC").
		Limit(1).
		Find(&row).Error
	if err != nil {
		return "", time.Time{}, err
	}
	if row.SnapshotDate == "" {
		return "", time.Time{}, ErrNoSnapshot
	}
	return row.SnapshotDate, row.RefreshedAt, nil
}

func (r *Reader) scoped(ctx context.Context, date string, f Filter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&PublicSnapshotRow{}).Where("snapshot_date = ?", date)
	if f.BBox != nil {
		q = q.Where("lat >= ? AND lat <= ? AND lng >= ? AND lng <= ?",
			f.BBox.South, f.BBox.North, f.BBox.West, f.BBox.East)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Precision != "" {
		q = q.Where(clause.Eq{Column: "precision", Value: f.Precision})
	}
	if f.UpdatedSince != nil {
		q = q.Where("point_updated_at >= ?", f.UpdatedSince.UTC())
	}
	return q
}

// Page fetches up to limit+1 rows of date starting at offset, ordered by
// refresh time descending with point id as the tie-break.
func (r *Reader) Page(ctx context.Context, date string, f Filter, offset, limit int) ([]PublicSnapshotRow, error) {
	var rows []PublicSnapshotRow
	err := r.scoped(ctx, date, f).
		Order("refreshed_at DESC, point_id ASC").
		Offset(offset).
		Limit(limit + 1).
		Find(&rows).Error
	return rows, err
}

// All returns every row of date matching f in listing order.
func (r *Reader) All(ctx context.Context, date string, f Filter) ([]PublicSnapshotRow, error) {
	var rows []PublicSnapshotRow
	err := r.scoped(ctx, date, f).
		Order("refreshed_at DESC, point_id ASC").
		Find(&rows).Error
	return rows, err
}

// ForPoint returns the most recent snapshot row for pointID across dates.
func (r *Reader) ForPoint(ctx context.Context, pointID uuid.UUID) (*PublicSnapshotRow, error) {
	var row PublicSnapshotRow
	err := r.db.WithContext(ctx).
		Where("point_id = ?", pointID).
		Order("snapshot_date DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}
