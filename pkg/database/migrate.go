package database

import (
	"database/sql"
	"fmt"
	"os"
)

// Migrate applies the schema at schemaPath. Statements are written to
// be idempotent (CREATE TABLE IF NOT EXISTS), so re-running on an
// existing database is safe.
func Migrate(db *sql.DB, schemaPath string) error {
	b, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", schemaPath, err)
	}

	if _, err := db.Exec(string(b)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
