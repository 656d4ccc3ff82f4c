// Package dbtest opens throwaway SQLite databases for package tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/EmpoweredVote/EV-PublicMap/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a gorm handle on a fresh database file under t.TempDir after
// migrating models.
func Open(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "publicmap.db")
	d, err := db.Open(sqlite.Open(path+"?_busy_timeout=5000"), db.Options{LogLevel: "silent"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(models) > 0 {
		if err := d.AutoMigrate(models...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := d.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return d
}
