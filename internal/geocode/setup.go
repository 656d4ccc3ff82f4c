package geocode

import (
	"fmt"

	"gorm.io/gorm"
)

func Init(d *gorm.DB) error {
	if err := d.AutoMigrate(&GeocodeCacheEntry{}); err != nil {
		return fmt.Errorf("auto-migrate geocode cache: %w", err)
	}
	return nil
}
