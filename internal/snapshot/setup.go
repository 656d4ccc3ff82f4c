package snapshot

import (
	"fmt"

	"gorm.io/gorm"
)

func Init(d *gorm.DB) error {
	if err := d.AutoMigrate(&PublicSnapshotRow{}); err != nil {
		return fmt.Errorf("auto-migrate snapshot tables: %w", err)
	}
	return nil
}
