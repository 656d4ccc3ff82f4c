package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// Options controls how a gorm handle is opened.
type Options struct {
	// Schema qualifies every table name, e.g. "publicmap" => publicmap.points.
	// Empty leaves tables unqualified.
	Schema   string
	LogLevel string
}

// Connect opens the production Postgres handle. The caller owns the returned
// handle and passes it into each component.
func Connect(dsn string, opts Options) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database url is empty")
	}

	d, err := Open(postgres.Open(dsn), opts)
	if err != nil {
		return nil, err
	}

	sqlDB, err := d.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if opts.Schema != "" {
		if err := EnsureSchema(d, opts.Schema); err != nil {
			return nil, fmt.Errorf("ensuring schema %s: %w", opts.Schema, err)
		}
	}

	log.Println("Connected to database")
	return d, nil
}

// Open wraps gorm.Open with the service's logger and naming strategy. Tests
// use it with the sqlite dialector.
func Open(dialector gorm.Dialector, opts Options) (*gorm.DB, error) {
	lg := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             100 * time.Millisecond,
			LogLevel:                  parseLogLevel(opts.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	naming := schema.NamingStrategy{}
	if opts.Schema != "" {
		naming.TablePrefix = opts.Schema + "."
	}

	d, err := gorm.Open(dialector, &gorm.Config{
		Logger:         lg,
		NamingStrategy: naming,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return d, nil
}

func parseLogLevel(s string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
