package points

import (
	"fmt"

	"gorm.io/gorm"
)

// Init migrates the point, resident, assignment and audit tables.
func Init(d *gorm.DB) error {
	if err := d.AutoMigrate(
		&Point{},
		&Resident{},
		&ResidentPointAssignment{},
		&AuditLogEntry{},
	); err != nil {
		return fmt.Errorf("auto-migrate points tables: %w", err)
	}

	table, err := TableName(d, &ResidentPointAssignment{})
	if err != nil {
		return err
	}

	// One active row per side, enforced by the database as well as the
	// assignment transaction.
	for _, col := range []string{"resident_id", "point_id"} {
		stmt := fmt.Sprintf(
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_assignment_%s ON %s (%s) WHERE active`,
			col, d.Statement.Quote(table), col,
		)
		if err := d.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create uniq_active_assignment_%s: %w", col, err)
		}
	}
	return nil
}

// TableName resolves the table for model under d's naming strategy.
func TableName(d *gorm.DB, model any) (string, error) {
	stmt := &gorm.Statement{DB: d}
	if err := stmt.Parse(model); err != nil {
		return "", fmt.Errorf("parse %T: %w", model, err)
	}
	return stmt.Schema.Table, nil
}
