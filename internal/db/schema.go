package db

import (
	"github.com/jackc/pgx/v5"
	"gorm.io/gorm"
)

// EnsureSchema creates the Postgres schema that qualifies every table.
func EnsureSchema(d *gorm.DB, schema string) error {
	return d.Exec(createSchemaSQL(schema)).Error
}

func createSchemaSQL(schema string) string {
	return "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{schema}.Sanitize()
}
